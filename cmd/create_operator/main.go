package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tollgate/models"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_operator <username> <password> [role]")
		os.Exit(2)
	}
	username := os.Args[1]
	password := os.Args[2]
	role := "operator"
	if len(os.Args) > 3 {
		role = os.Args[3]
	}
	if role != "operator" && role != "administrator" {
		log.Fatalf("unknown role %q (want operator or administrator)", role)
	}

	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	// check existing
	var existing models.Operator
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		fmt.Printf("operator %s already exists (id=%d)\n", username, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	op := models.Operator{Username: username, HashedPassword: hpw, Role: role}
	if err := db.Create(&op).Error; err != nil {
		log.Fatalf("failed to create operator: %v", err)
	}
	fmt.Printf("created operator %s id=%d role=%s\n", username, op.ID, op.Role)
}
