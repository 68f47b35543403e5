// Demo client: connects to the chat endpoint as a customer, starts a
// session, then relays stdin lines as chat messages.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"support-chat/auth"
	"support-chat/client"
	"support-chat/domain"
	"support-chat/transport"
)

type Config struct {
	ServerURL string `env:"SERVER_URL,default=ws://localhost:8080/ws/chat"`
	JWTSecret string `env:"JWT_SECRET,required=true"`
	UserID    string `env:"USER_ID,required=true"`
	UserName  string `env:"USER_NAME,default=Demo User"`
	Subject   string `env:"SUBJECT,default=Demo session"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// Self-signed token; in the portal the widget receives it from the
	// authenticated page instead.
	authenticator := auth.NewTokenAuthenticator(config.JWTSecret)
	token, err := authenticator.GenerateToken(config.UserID, config.UserName, domain.RoleCustomer, time.Hour)
	if err != nil {
		return fmt.Errorf("token generation failed: %w", err)
	}

	manager := client.NewManager(log, client.Config{URL: config.ServerURL, Token: token})
	defer manager.Close()

	var mu sync.Mutex
	sessionID := ""

	manager.AddSessionListener(func(env transport.Envelope) {
		switch env.Type {
		case transport.TypeSessionStarted, transport.TypeSessionResumed:
			mu.Lock()
			sessionID = env.SessionID
			mu.Unlock()
			fmt.Printf("<< session %s (%s)\n", env.SessionID, env.Type)
		case transport.TypeAdminJoined:
			fmt.Printf("<< staff %s joined\n", env.StaffID)
		case transport.TypeSessionEnded:
			fmt.Printf("<< session ended by %s\n", env.EndedBy)
		}
	})
	manager.AddMessageListener(func(env transport.Envelope) {
		fmt.Printf("<< [%s] %s\n", env.SenderID, env.Content)
	})
	manager.AddTypingListener(func(env transport.Envelope) {
		if env.IsTyping != nil && *env.IsTyping {
			fmt.Printf("<< %s is typing...\n", env.SenderID)
		}
	})
	manager.AddErrorListener(func(err error) {
		fmt.Printf("<< error: %v\n", err)
	})

	if err := manager.Connect(context.Background()); err != nil {
		return err
	}
	if err := manager.StartSession(config.Subject, ""); err != nil {
		return err
	}

	log.Info("Type messages, /quit to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}
		mu.Lock()
		id := sessionID
		mu.Unlock()
		if id == "" {
			fmt.Println(">> no session yet, message queued refused")
			continue
		}
		if err := manager.SendMessage(id, line); err != nil {
			log.Warn("send failed", "error", err)
		}
	}
	return scanner.Err()
}
