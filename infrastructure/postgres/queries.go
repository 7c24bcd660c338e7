package postgres

const (
	querySchema = `
		CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS chat_rooms (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS messages (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			room_id    UUID NOT NULL,
			user_id    UUID NOT NULL,
			content    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS messages_room_created_idx ON messages (room_id, created_at);
	`

	queryInsertMessage = `
		INSERT INTO messages (room_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, room_id, user_id, content, created_at;
	`
	queryListMessages = `
		SELECT id, room_id, user_id, content, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at ASC, id ASC;
	`

	queryCreateRoom = `
		INSERT INTO chat_rooms (name)
		VALUES ($1)
		RETURNING id, name, created_at;
	`
	queryGetRoom   = `SELECT id, name, created_at FROM chat_rooms WHERE id = $1;`
	queryListRooms = `SELECT id, name, created_at FROM chat_rooms ORDER BY created_at ASC, id ASC;`

	queryCreateUser = `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at;
	`
	queryGetUserByUsername = `SELECT id, username, password_hash, created_at FROM users WHERE username = $1;`
	queryFindUsers         = `
		SELECT id, username, created_at
		FROM users
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username ASC;
	`
)
