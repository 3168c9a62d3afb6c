// Package store persists player records in Postgres and answers the
// credential lookups the game engine needs.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound means no player record exists for the given username.
	ErrNotFound = errors.New("player not found")
	// ErrDuplicate means a record with the same username or cedula exists.
	ErrDuplicate = errors.New("player already registered")
)

// Player is a stored player identity. Secrets never leave the store.
type Player struct {
	Name     string `json:"name"`
	Cedula   string `json:"cedula"`
	Username string `json:"username"`
}

// PlayerStore reads and writes the jugadores table.
type PlayerStore struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPlayerStore(db *sql.DB, logger *zap.Logger) *PlayerStore {
	return &PlayerStore{db: db, log: logger}
}

// FindByUsername returns the player record for a username, or ErrNotFound.
func (s *PlayerStore) FindByUsername(username string) (*Player, error) {
	query := "SELECT nombre, cedula, usuario FROM jugadores WHERE usuario = $1"
	var p Player
	err := s.db.QueryRow(query, username).Scan(&p.Name, &p.Cedula, &p.Username)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		s.log.Error("querying player", zap.String("usuario", username), zap.Error(err))
		return nil, fmt.Errorf("querying player %s: %w", username, err)
	}
	return &p, nil
}

// Verify reports whether the username/secret pair matches a stored record.
// An unknown username is a plain false, not an error.
func (s *PlayerStore) Verify(username, secret string) (bool, error) {
	query := "SELECT contrasena FROM jugadores WHERE usuario = $1"
	var hash string
	err := s.db.QueryRow(query, username).Scan(&hash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		s.log.Error("verifying credentials", zap.String("usuario", username), zap.Error(err))
		return false, fmt.Errorf("verifying credentials for %s: %w", username, err)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil, nil
}

// Insert registers a new player. The secret is stored bcrypt-hashed.
// Uniqueness on usuario and cedula is enforced by the table constraints;
// violations surface as ErrDuplicate.
func (s *PlayerStore) Insert(p Player, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing secret: %w", err)
	}

	query := "INSERT INTO jugadores (nombre, cedula, usuario, contrasena) VALUES ($1, $2, $3, $4)"
	_, err = s.db.Exec(query, p.Name, p.Cedula, p.Username, string(hash))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		s.log.Error("inserting player", zap.String("usuario", p.Username), zap.Error(err))
		return fmt.Errorf("inserting player %s: %w", p.Username, err)
	}

	s.log.Info("player registered", zap.String("usuario", p.Username), zap.String("nombre", p.Name))
	return nil
}
