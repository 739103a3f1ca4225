package server

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/muddy-beach/beachmud/pkg/boltstore"
	"github.com/muddy-beach/beachmud/pkg/crypt"
	"github.com/muddy-beach/beachmud/pkg/game"
)

// AuthState is a session's position in the authentication handshake.
type AuthState int

const (
	StateAuthenticating AuthState = iota // awaiting login/register
	StateRegistering                     // awaiting new-account password
	StateLoggingIn                       // awaiting password attempt
	StateCharacterSelect                 // awaiting play/create
	StateInGame                          // input belongs to the player now
)

// String returns a human-readable state name.
func (s AuthState) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateRegistering:
		return "registering"
	case StateLoggingIn:
		return "logging_in"
	case StateCharacterSelect:
		return "character_select"
	case StateInGame:
		return "ingame"
	default:
		return "unknown"
	}
}

// AccountStore is the persistence contract the handshake needs: lookup,
// insert-if-absent, and nothing else.
type AccountStore interface {
	GetAccount(name string) (*boltstore.Account, error)
	CreateAccount(acct *boltstore.Account) error
	GetCharacter(name string) (*boltstore.Character, error)
	CreateCharacter(ch *boltstore.Character) error
	CharactersByAccount(account string) ([]*boltstore.Character, error)
}

// AuthMachine drives one session through INIT → AUTHENTICATING →
// REGISTERING/LOGGING_IN → CHARACTER_SELECT → INGAME. All handling runs on
// the tick thread, one line of input at a time, in arrival order.
type AuthMachine struct {
	state  AuthState
	store  AccountStore
	hasher crypt.Hasher
	log    *zap.Logger

	// Pending credentials between the name line and the password line.
	pendingName string
	pendingSalt []byte
	pendingAcct *boltstore.Account // nil while registering or for decoy logins
}

// NewAuthMachine creates a machine in the AUTHENTICATING state.
func NewAuthMachine(store AccountStore, hasher crypt.Hasher, log *zap.Logger) *AuthMachine {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthMachine{
		state:  StateAuthenticating,
		store:  store,
		hasher: hasher,
		log:    log,
	}
}

// State reports the machine's current state.
func (m *AuthMachine) State() AuthState { return m.state }

// Handle routes one line of input according to the current state.
func (m *AuthMachine) Handle(w *game.World, s *Session, line string) {
	switch m.state {
	case StateAuthenticating:
		m.handleAuthenticating(s, line)
	case StateRegistering:
		m.handleRegistering(w, s, line)
	case StateLoggingIn:
		m.handleLoggingIn(w, s, line)
	case StateCharacterSelect:
		m.handleCharacterSelect(w, s, line)
	case StateInGame:
		// The machine no longer inspects input once in game; the session
		// should be routing to the player instead.
		if s.player != nil {
			s.player.ProcessInput(w, line)
		}
	}
}

func (m *AuthMachine) handleAuthenticating(s *Session, line string) {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		s.PushOutput("Welcome to the dungeon. Commands: 'login <username>' or 'register <username>'")
		return
	}

	command, username := strings.ToLower(parts[0]), parts[1]
	switch command {
	case "login":
		m.beginLogin(s, username)
	case "register":
		m.beginRegister(s, username)
	default:
		s.PushOutput("Welcome to the dungeon. Commands: 'login <username>' or 'register <username>'")
	}
}

// beginLogin fetches the account's salt, or mints a decoy for unknown names
// so the response alone cannot reveal whether an account exists.
func (m *AuthMachine) beginLogin(s *Session, username string) {
	acct, err := m.store.GetAccount(username)
	switch {
	case err == nil:
		m.pendingAcct = acct
		m.pendingSalt = acct.Salt
	case errors.Is(err, boltstore.ErrNotFound):
		decoy, derr := crypt.NewSalt()
		if derr != nil {
			s.PushOutput("<+info>Something went wrong. Try again.<-info>")
			return
		}
		m.pendingAcct = nil
		m.pendingSalt = decoy
	default:
		m.log.Warn("account lookup failed", zap.String("account", username), zap.Error(err))
		s.PushOutput("<+info>Something went wrong. Try again.<-info>")
		return
	}

	m.pendingName = username
	m.state = StateLoggingIn
	s.PushSalt(m.pendingSalt)
	s.PushOutput("Enter your password.")
}

func (m *AuthMachine) beginRegister(s *Session, username string) {
	_, err := m.store.GetAccount(username)
	switch {
	case err == nil:
		s.PushOutput(fmt.Sprintf("The name '%s' is already taken.", username))
		return
	case errors.Is(err, boltstore.ErrNotFound):
		// Free name; proceed.
	default:
		m.log.Warn("account lookup failed", zap.String("account", username), zap.Error(err))
		s.PushOutput("<+info>Something went wrong. Try again.<-info>")
		return
	}

	salt, err := crypt.NewSalt()
	if err != nil {
		s.PushOutput("<+info>Something went wrong. Try again.<-info>")
		return
	}

	m.pendingName = username
	m.pendingSalt = salt
	m.pendingAcct = nil
	m.state = StateRegistering
	s.PushSalt(salt)
	s.PushOutput("Choose a password.")
}

// handleRegistering treats the whole line as the new account's password.
func (m *AuthMachine) handleRegistering(w *game.World, s *Session, password string) {
	hash, err := m.hasher.Hash(password, m.pendingSalt)
	if err != nil {
		m.failBack(s, "Registration failed. Try 'register <username>' again.")
		return
	}

	acct := &boltstore.Account{
		Name:         m.pendingName,
		PasswordHash: hash,
		Salt:         m.pendingSalt,
	}
	if err := m.store.CreateAccount(acct); err != nil {
		if errors.Is(err, boltstore.ErrExists) {
			m.failBack(s, fmt.Sprintf("The name '%s' was taken while you typed. Pick another.", m.pendingName))
		} else {
			m.log.Warn("create account failed", zap.String("account", m.pendingName), zap.Error(err))
			m.failBack(s, "Registration failed. Try 'register <username>' again.")
		}
		return
	}

	if err := w.ReserveAccount(acct.Name, s.id); err != nil {
		m.failBack(s, "That account is already logged in.")
		return
	}

	s.account = acct.Name
	m.state = StateCharacterSelect
	m.log.Info("account registered", zap.String("account", acct.Name))
	s.PushOutput(fmt.Sprintf("Welcome, %s! You're now a welcomed victim of my dungeon.", acct.Name))
	m.showCharacterPrompt(s)
}

// handleLoggingIn treats the whole line as the password attempt. Unknown
// account, wrong password, and already-active account all fail back to
// AUTHENTICATING; the first two share one message.
func (m *AuthMachine) handleLoggingIn(w *game.World, s *Session, password string) {
	if m.pendingAcct == nil {
		// Decoy path: burn a hash so timing resembles a real check.
		m.hasher.Hash(password, m.pendingSalt)
		m.failBack(s, "Wrong username or password.")
		return
	}

	if !m.hasher.Verify(password, m.pendingAcct.Salt, m.pendingAcct.PasswordHash) {
		m.failBack(s, "Wrong username or password.")
		return
	}

	if err := w.ReserveAccount(m.pendingAcct.Name, s.id); err != nil {
		m.failBack(s, "That account is already logged in.")
		return
	}

	s.account = m.pendingAcct.Name
	m.state = StateCharacterSelect
	m.log.Info("account authenticated", zap.String("account", s.account))
	s.PushOutput(fmt.Sprintf("Welcome back, %s!", s.account))
	m.showCharacterPrompt(s)
}

func (m *AuthMachine) showCharacterPrompt(s *Session) {
	chars, err := m.store.CharactersByAccount(s.account)
	if err != nil {
		m.log.Warn("list characters failed", zap.String("account", s.account), zap.Error(err))
	}
	if len(chars) == 0 {
		s.PushOutput("You have no characters yet. Type 'create <name>' (or just 'create') to make one.")
		return
	}
	s.PushOutput("Your characters:")
	for _, ch := range chars {
		s.PushOutput(fmt.Sprintf("* <+player>%s<-player> (last seen: %s)", ch.Name, ch.LastRoom))
	}
	s.PushOutput("Type 'play <name>' to resume, or 'create <name>' for a new character.")
}

func (m *AuthMachine) handleCharacterSelect(w *game.World, s *Session, line string) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	command := strings.ToLower(parts[0])
	arg := ""
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}

	switch command {
	case "play":
		m.playCharacter(w, s, arg)
	case "create":
		m.createCharacter(w, s, arg)
	default:
		s.PushOutput("Type 'play <name>' or 'create <name>'.")
	}
}

func (m *AuthMachine) playCharacter(w *game.World, s *Session, name string) {
	if name == "" {
		s.PushOutput("Usage: play <name>")
		return
	}

	ch, err := m.store.GetCharacter(name)
	if err != nil || ch.AccountName != s.account {
		// One message for both: don't leak other accounts' character names.
		s.PushOutput(fmt.Sprintf("You have no character named '%s'.", name))
		return
	}

	m.enterGame(w, s, ch.Name, ch.LastRoom)
}

func (m *AuthMachine) createCharacter(w *game.World, s *Session, name string) {
	if name == "" {
		name = game.GenerateName()
	}

	ch := &boltstore.Character{
		Name:        name,
		AccountName: s.account,
		LastRoom:    w.EntryRoom,
	}
	if err := m.store.CreateCharacter(ch); err != nil {
		if errors.Is(err, boltstore.ErrExists) {
			s.PushOutput(fmt.Sprintf("A character named '%s' already exists.", name))
		} else {
			m.log.Warn("create character failed", zap.String("character", name), zap.Error(err))
			s.PushOutput("<+info>Character creation failed. Try again.<-info>")
		}
		return
	}

	m.enterGame(w, s, ch.Name, ch.LastRoom)
}

func (m *AuthMachine) enterGame(w *game.World, s *Session, name, lastRoom string) {
	// Subscribe before binding so the entry announcements reach the client.
	w.Bus.Subscribe(name, s)
	p, err := w.BindPlayer(s, name, s.account, lastRoom)
	if err != nil {
		w.Bus.Unsubscribe(name, s)
		s.PushOutput(fmt.Sprintf("<+info>%v<-info>", err))
		return
	}

	s.player = p
	m.state = StateInGame
	m.log.Info("player entered game",
		zap.String("account", s.account), zap.String("character", name))
}

// failBack reports a recoverable authentication error and returns the
// machine to AUTHENTICATING for another attempt.
func (m *AuthMachine) failBack(s *Session, msg string) {
	m.pendingName = ""
	m.pendingSalt = nil
	m.pendingAcct = nil
	m.state = StateAuthenticating
	s.PushOutput(msg)
}
