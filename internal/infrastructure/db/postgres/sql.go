package postgres

// ---- users ----

const userColumns = `id, email, name, password_hash, role, created_at`

const insertUserSQL = `
INSERT INTO users (id, email, name, password_hash, role, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING ` + userColumns

const getUserByEmailSQL = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1
LIMIT 1
`

const getUserByIDSQL = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
LIMIT 1
`

// ---- events ----

const insertEventSQL = `
INSERT INTO events (
  id, title, date, location, description, category,
  max_attendees, image_key, created_by, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`

// attendees come back as JSON text in join order
const eventColumns = `
  e.id, e.title, e.date, e.location, e.description, e.category,
  e.max_attendees, e.image_key, e.created_by, e.created_at, e.updated_at,
  COALESCE((
    SELECT json_agg(a.user_id ORDER BY a.joined_at, a.user_id)
    FROM event_attendees a
    WHERE a.event_id = e.id
  ), '[]')::text`

const getEventSQL = `
SELECT` + eventColumns + `
FROM events e
WHERE e.id = $1
`

const lockEventSQL = `
SELECT id, title, date, location, description, category,
       max_attendees, image_key, created_by, created_at, updated_at
FROM events
WHERE id = $1
FOR UPDATE
`

const listAttendeesSQL = `
SELECT user_id
FROM event_attendees
WHERE event_id = $1
ORDER BY joined_at, user_id
`

const setEventImageSQL = `
UPDATE events SET image_key = $2, updated_at = $3
WHERE id = $1
`

const insertAttendeeSQL = `
INSERT INTO event_attendees (event_id, user_id, joined_at)
VALUES ($1, $2, $3)
`

// ---- registration requests ----

const insertRequestSQL = `
INSERT INTO registration_requests (id, event_id, user_id, registration_date, status)
VALUES ($1,$2,$3,$4,$5)
`

const getRequestForUpdateSQL = `
SELECT id, event_id, user_id, registration_date, status, reviewed_by, reviewed_at
FROM registration_requests
WHERE id = $1
FOR UPDATE
`

const updateRequestStatusSQL = `
UPDATE registration_requests
SET status = $2, reviewed_by = $3, reviewed_at = $4
WHERE id = $1
`

// ---- outbox ----

const insertOutboxSQL = `
INSERT INTO outbox (
  message_id, routing_key, body, created_at, status, next_attempt_at
) VALUES ($1, $2, $3::jsonb, $4, 'pending', $4)
`

const selectOutboxClaimsSQL = `
SELECT id, message_id, routing_key, body::text, attempts
FROM outbox
WHERE status IN ('pending', 'failed', 'processing')
  AND next_attempt_at <= NOW()
ORDER BY next_attempt_at ASC, id ASC
LIMIT $1
FOR UPDATE SKIP LOCKED
`

const updateOutboxClaimSQL = `
UPDATE outbox
SET status = 'processing',
    next_attempt_at = $2
WHERE id = $1
`

const markOutboxSentSQL = `
UPDATE outbox
SET status = 'sent',
    sent_at = $2,
    last_error = NULL
WHERE id = $1
`

const markOutboxFailedSQL = `
UPDATE outbox
SET status = 'failed',
    attempts = attempts + 1,
    next_attempt_at = $2,
    last_error = $3
WHERE id = $1
`

const markOutboxDeadSQL = `
UPDATE outbox
SET status = 'dead',
    attempts = attempts + 1,
    last_error = $2
WHERE id = $1
`
