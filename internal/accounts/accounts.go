// Package accounts is the player ledger: registration, login state and a
// per-player record of the game versions they have played.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"peer-arcade/internal/store"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const DocumentName = "accounts"

var (
	ErrUserExists         = errors.New("user_exists")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUnknownUser        = errors.New("unknown_user")
	ErrInvalidInput       = errors.New("invalid_input")
)

type Account struct {
	PasswordHash string              `json:"password_hash"`
	LoggedIn     bool                `json:"logged_in"`
	Records      map[string][]string `json:"records,omitempty"`
}

type Ledger struct {
	mu       sync.Mutex
	docs     store.Documents
	cost     int
	accounts map[string]Account
}

// NewLedger loads the accounts document. cost is the bcrypt cost; zero
// selects bcrypt.DefaultCost.
func NewLedger(ctx context.Context, docs store.Documents, cost int) (*Ledger, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	accounts := map[string]Account{}
	if _, err := docs.Load(ctx, DocumentName, &accounts); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	if accounts == nil {
		accounts = map[string]Account{}
	}
	return &Ledger{docs: docs, cost: cost, accounts: accounts}, nil
}

func (l *Ledger) Register(ctx context.Context, user, password string) error {
	user = strings.TrimSpace(user)
	if user == "" || password == "" {
		return ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[user]; ok {
		return ErrUserExists
	}
	if err := l.commitLocked(ctx, user, Account{PasswordHash: string(hash)}); err != nil {
		return err
	}
	log.Info().Str("user", user).Msg("account_registered")
	return nil
}

// Login marks the user logged in. A new login replaces any previous one.
func (l *Ledger) Login(ctx context.Context, user, password string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[user]
	if !ok || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	acct.LoggedIn = true
	return l.commitLocked(ctx, user, acct)
}

func (l *Ledger) Logout(ctx context.Context, user string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[user]
	if !ok {
		return ErrUnknownUser
	}
	acct.LoggedIn = false
	return l.commitLocked(ctx, user, acct)
}

func (l *Ledger) IsLoggedIn(user string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accounts[user].LoggedIn
}

// RecordPlay notes that user played game at version. Unknown users are
// ignored so guests can still play when login is not required.
func (l *Ledger) RecordPlay(ctx context.Context, user, game, version string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[user]
	if !ok {
		return nil
	}
	for _, v := range acct.Records[game] {
		if v == version {
			return nil
		}
	}
	records := make(map[string][]string, len(acct.Records)+1)
	for g, vs := range acct.Records {
		records[g] = vs
	}
	records[game] = append(append([]string(nil), acct.Records[game]...), version)
	acct.Records = records
	return l.commitLocked(ctx, user, acct)
}

func (l *Ledger) HasPlayed(user, game string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.accounts[user].Records[game]) > 0
}

func (l *Ledger) commitLocked(ctx context.Context, user string, acct Account) error {
	next := make(map[string]Account, len(l.accounts)+1)
	for k, v := range l.accounts {
		next[k] = v
	}
	next[user] = acct
	if err := l.docs.Save(ctx, DocumentName, next); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	l.accounts = next
	return nil
}
