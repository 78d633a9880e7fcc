package api

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"lockbox/internal/auth"
	"lockbox/internal/badgerstore"
	"lockbox/internal/config"
	"lockbox/internal/models"
	"lockbox/internal/storage"
	"lockbox/internal/store"
	"lockbox/internal/vault"
	"lockbox/internal/websocket"

	"golang.org/x/crypto/bcrypt"
)

var (
	testServer *Server
	aliceToken string
	bobToken   string
	alice      *models.User
	bob        *models.User
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := badgerstore.Open(badgerstore.Options{InMemory: true})
	if err != nil {
		log.Fatalf("Could not open badger: %s", err)
	}
	defer db.Close()

	tempDir, err := os.MkdirTemp("", "api-storage-test")
	if err != nil {
		log.Fatalf("Could not create temp dir: %s", err)
	}
	defer os.RemoveAll(tempDir)

	localStorage, err := storage.NewLocalStorage(tempDir)
	if err != nil {
		log.Fatalf("Could not create local storage: %s", err)
	}

	wsHub := websocket.NewHub(nil)
	go wsHub.Run(ctx)

	service, err := vault.NewService(vault.Config{
		Store:     db,
		Blobs:     localStorage,
		Hasher:    auth.NewBcryptHasher(bcrypt.MinCost),
		Publisher: wsHub,
	})
	if err != nil {
		log.Fatalf("Could not create service: %s", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Addr: ":0", CORS: config.CORSConfig{AllowedOrigins: []string{"*"}}},
		JWT:    config.JWTConfig{Secret: "api_test_secret_0123", TTL: time.Hour},
	}
	testServer = NewServer(cfg, service, db, wsHub, nil)

	alice, aliceToken = createTestUser(db, cfg, "alice")
	bob, bobToken = createTestUser(db, cfg, "bob")

	return m.Run()
}

func createTestUser(st store.Store, cfg *config.Config, username string) (*models.User, string) {
	hashedPassword, err := auth.HashPassword("password")
	if err != nil {
		log.Fatalf("Could not hash password: %s", err)
	}
	user, err := st.CreateUser(context.Background(), store.CreateUserParams{Username: username, PasswordHash: hashedPassword})
	if err != nil {
		log.Fatalf("Could not create user: %s", err)
	}
	token, err := auth.GenerateJWT(user, cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		log.Fatalf("Could not generate token: %s", err)
	}
	return user, token
}
