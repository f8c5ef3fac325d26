package data

import (
	"database/sql"
	"fmt"
)

type User struct {
	UserID    int64
	ChatID    int64
	FirstName string
	LastName  string
	Username  string
	IsBanned  bool
	IsAdmin   bool
	CreatedAt string

	TransferCount int64
	TransferBytes int64
}

type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// InitDB initializes the database by creating necessary tables.
func (r *UserRepository) InitDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		chat_id INTEGER NOT NULL,
		first_name TEXT,
		last_name TEXT,
		username TEXT,
		is_banned BOOLEAN DEFAULT FALSE,
		is_admin BOOLEAN DEFAULT FALSE,
		transfer_count INTEGER DEFAULT 0,
		transfer_bytes INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	_, err := r.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	return nil
}

// StoreUserInfo stores or updates user information in the database.
// Ban/admin flags and counters are preserved on update.
func (r *UserRepository) StoreUserInfo(userID, chatID int64, firstName, lastName, username string, isAdmin bool) error {
	query := `
	INSERT INTO users (user_id, chat_id, first_name, last_name, username, is_admin)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
	chat_id=excluded.chat_id,
	first_name=excluded.first_name,
	last_name=excluded.last_name,
	username=excluded.username;
	`

	_, err := r.db.Exec(query, userID, chatID, firstName, lastName, username, isAdmin)
	return err
}

// GetUserInfo retrieves user information from the database by user ID.
func (r *UserRepository) GetUserInfo(userID int64) (*User, error) {
	query := `SELECT user_id, chat_id, first_name, last_name, username, is_banned, is_admin, transfer_count, transfer_bytes, created_at FROM users WHERE user_id = ?`
	row := r.db.QueryRow(query, userID)

	var user User
	if err := row.Scan(&user.UserID, &user.ChatID, &user.FirstName, &user.LastName, &user.Username, &user.IsBanned, &user.IsAdmin, &user.TransferCount, &user.TransferBytes, &user.CreatedAt); err != nil {
		return nil, err
	}

	return &user, nil
}

// IsFirstUser checks if the current user is the first user in the database.
func (r *UserRepository) IsFirstUser() (bool, error) {
	query := `SELECT COUNT(*) FROM users`
	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// RecordTransfer increments a user's completed-transfer counters.
func (r *UserRepository) RecordTransfer(userID, bytes int64) error {
	query := `UPDATE users SET transfer_count = transfer_count + 1, transfer_bytes = transfer_bytes + ? WHERE user_id = ?`
	_, err := r.db.Exec(query, bytes, userID)
	return err
}

// SetBanned sets or clears a user's ban flag.
func (r *UserRepository) SetBanned(userID int64, banned bool) error {
	query := `UPDATE users SET is_banned = ? WHERE user_id = ?`
	_, err := r.db.Exec(query, banned, userID)
	return err
}

// Totals returns the user count plus lifetime transfer count and bytes
// across all users.
func (r *UserRepository) Totals() (users, transfers, bytes int64, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(transfer_count), 0), COALESCE(SUM(transfer_bytes), 0) FROM users`
	err = r.db.QueryRow(query).Scan(&users, &transfers, &bytes)
	return
}

// GetAllAdmins retrieves a list of all admin users.
func (r *UserRepository) GetAllAdmins() ([]User, error) {
	query := `SELECT user_id, chat_id, first_name, last_name, username FROM users WHERE is_admin = TRUE`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.UserID, &user.ChatID, &user.FirstName, &user.LastName, &user.Username); err != nil {
			return nil, err
		}
		admins = append(admins, user)
	}
	return admins, rows.Err()
}
