package e2e

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/suite"

	"support-chat/auth"
	"support-chat/client"
	"support-chat/domain"
	"support-chat/notify"
	"support-chat/observability"
	"support-chat/projection"
	"support-chat/repositories"
	"support-chat/runtime"
	"support-chat/runtime/workers"
	"support-chat/services"
	"support-chat/transport"
)

// BaseChatSuite boots one engine per suite (in-process unless
// E2E_SERVER_ADDR targets a deployed one) and hands out connected clients.
type BaseChatSuite struct {
	suite.Suite

	Config        Config
	URL           string
	Service       services.IChatService
	authenticator *auth.TokenAuthenticator

	cancelWorkers context.CancelFunc
	cleanups      []func()
}

func (s *BaseChatSuite) SetupSuite() {
	cfg, err := LoadConfig()
	s.Require().NoError(err)
	s.Config = cfg
	s.authenticator = auth.NewTokenAuthenticator(cfg.JWTSecret)

	if cfg.ServerAddr != "" {
		s.URL = cfg.ServerAddr
		return
	}
	s.startInProcess()
}

func (s *BaseChatSuite) startInProcess() {
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.onTearDown(func() { _ = db.Close() })
	store := repositories.NewStore(db, log)

	searchIndex, err := repositories.NewSearchIndex(s.T().TempDir(), log)
	s.Require().NoError(err)
	s.onTearDown(func() { _ = searchIndex.Close() })

	monitoring := observability.NewMonitoringManager()
	presence := runtime.NewPresenceTracker(log, store)
	registry := runtime.NewRegistry(func(staffID string) {
		presence.SetStatus(context.Background(), staffID, false, false)
	})
	router := runtime.NewRouter(log, registry)
	indexWorker := workers.NewIndexWorker(log, searchIndex, 64)
	router.AddSink(indexWorker, projection.NewTranscript())

	typing := runtime.NewTypingDebouncer(router, s.Config.TypingQuiet)
	s.onTearDown(typing.Stop)
	lifecycle := runtime.NewLifecycle(log, store, registry, router, presence, notify.NewLogNotifier(log))
	s.Service = services.NewChatService(lifecycle, typing, presence, searchIndex)

	workerCtx, cancel := context.WithCancel(context.Background())
	s.cancelWorkers = cancel
	sup := workers.NewSupervisor(log, 50*time.Millisecond)
	go sup.Add(indexWorker).Run(workerCtx)

	server := transport.NewServer(log, s.authenticator, registry, s.Service, monitoring)
	httpServer := httptest.NewServer(server)
	s.onTearDown(httpServer.Close)
	s.URL = "ws" + strings.TrimPrefix(httpServer.URL, "http")
}

func (s *BaseChatSuite) onTearDown(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

func (s *BaseChatSuite) TearDownSuite() {
	if s.cancelWorkers != nil {
		s.cancelWorkers()
	}
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
}

// ChatClient is one connected participant with typed event inboxes.
type ChatClient struct {
	Manager *client.Manager

	Messages  chan transport.Envelope
	Sessions  chan transport.Envelope
	Typings   chan transport.Envelope
	Presences chan transport.Envelope
	Errors    chan error
}

// NewClient builds a manager for the participant. Call Connect yourself
// when the scenario needs offline queueing first.
func (s *BaseChatSuite) NewClient(userID string, role domain.Role) *ChatClient {
	token, err := s.authenticator.GenerateToken(userID, userID, role, time.Hour)
	s.Require().NoError(err)

	c := &ChatClient{
		Manager: client.NewManager(slog.Default(), client.Config{
			URL:       s.URL,
			Token:     token,
			BaseDelay: 20 * time.Millisecond,
		}),
		Messages:  make(chan transport.Envelope, 64),
		Sessions:  make(chan transport.Envelope, 64),
		Typings:   make(chan transport.Envelope, 64),
		Presences: make(chan transport.Envelope, 64),
		Errors:    make(chan error, 64),
	}
	c.Manager.AddMessageListener(func(env transport.Envelope) { c.Messages <- env })
	c.Manager.AddSessionListener(func(env transport.Envelope) { c.Sessions <- env })
	c.Manager.AddTypingListener(func(env transport.Envelope) { c.Typings <- env })
	c.Manager.AddPresenceListener(func(env transport.Envelope) { c.Presences <- env })
	c.Manager.AddErrorListener(func(err error) { c.Errors <- err })

	s.onTearDown(func() { _ = c.Manager.Close() })
	return c
}

// ConnectClient builds the manager and waits for the link to open.
func (s *BaseChatSuite) ConnectClient(userID string, role domain.Role) *ChatClient {
	c := s.NewClient(userID, role)
	s.Require().NoError(c.Manager.Connect(context.Background()))
	s.Require().Eventually(func() bool {
		return c.Manager.State() == client.StateOpen
	}, s.Config.WaitTimeout, 5*time.Millisecond)
	return c
}

// Expect pops the next envelope of the wanted type from the inbox,
// skipping interleaved events of other session frame types.
func (s *BaseChatSuite) Expect(inbox chan transport.Envelope, frameType string) transport.Envelope {
	deadline := time.After(s.Config.WaitTimeout)
	for {
		select {
		case env := <-inbox:
			if env.Type == frameType {
				return env
			}
		case <-deadline:
			s.Require().Failf("timeout", "no %s frame within %s", frameType, s.Config.WaitTimeout)
			return transport.Envelope{}
		}
	}
}
