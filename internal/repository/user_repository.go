package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/antiapp/cafe-focus-rewards/internal/model"
	"github.com/antiapp/cafe-focus-rewards/internal/utils"
)

// UserRepo provides access to the `users` table.
type UserRepo struct{ DB *sql.DB }

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with a freshly hashed password and returns
// the generated ID.  The MySQL duplicate-key error (1062) on the
// unique email index is mapped to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const userColumns = "id,email,password_hash,role,wallet_addr,is_active,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u      model.User
		wallet sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &wallet, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if wallet.Valid {
		u.WalletAddr = wallet.String
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// SetWallet stores the user's on-chain wallet address used by the
// token mirror.  An empty string unlinks the wallet.
func (r *UserRepo) SetWallet(ctx context.Context, userID uint64, walletAddr string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET wallet_addr=NULLIF(?, '') WHERE id=?",
		strings.TrimSpace(walletAddr), userID)
	return err
}
