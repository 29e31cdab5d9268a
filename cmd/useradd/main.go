package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"authorsync/internal/auth"
	"authorsync/pkg/database"
)

func main() {
	username := flag.String("username", "", "api username (required)")
	password := flag.String("password", "", "api password (required)")
	role := flag.String("role", auth.RoleEditor, "role: editor or admin")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("usage: useradd -username <name> -password <pass> [-role editor|admin]")
	}
	if *role != auth.RoleEditor && *role != auth.RoleAdmin {
		log.Fatalf("invalid role %q", *role)
	}

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := auth.NewRepo(db)
	user := auth.User{
		ID:           uuid.NewString(),
		Username:     *username,
		PasswordHash: string(hash),
		Role:         *role,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		log.Fatalf("create user failed: %v", err)
	}

	log.Printf("created user %s (%s)", user.Username, user.Role)
}
