package main

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tollgate/models"
)

// RegisterOperator creates a checkpoint staff account with the default
// operator role.
func RegisterOperator(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username required")
	}
	if len(password) < 6 { // basic password policy
		return fmt.Errorf("password too short (min 6)")
	}
	// pre-check existing (optimistic)
	var existing models.Operator
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return fmt.Errorf("operator already exists")
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	op := models.Operator{Username: username, HashedPassword: hashedPassword, Role: "operator"}
	if err := db.Create(&op).Error; err != nil {
		if isUniqueConstraintError(err) { // race condition after initial check
			return fmt.Errorf("operator already exists")
		}
		return err
	}
	return nil
}

// AuthenticateOperator checks credentials and returns the account.
func AuthenticateOperator(username, password string) (models.Operator, error) {
	username = strings.TrimSpace(username)
	var op models.Operator
	if err := db.Where("username = ?", username).First(&op).Error; err != nil {
		return models.Operator{}, fmt.Errorf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(op.HashedPassword, []byte(password)); err != nil {
		return models.Operator{}, fmt.Errorf("invalid credentials")
	}
	return op, nil
}
