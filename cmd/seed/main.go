package main

import (
	"log"
	"os"
	"time"

	"ai-docchat-be/internal/model"
	"ai-docchat-be/pkg/database"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a verified demo account so the API can be exercised without going
// through the register/verify flow. Override SEED_EMAIL and SEED_PASSWORD
// to control the credentials.
func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	email := os.Getenv("SEED_EMAIL")
	if email == "" {
		email = "demo@example.com"
	}
	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "demo-password-123"
	}

	log.Println("Seeding demo account...")

	// Check if a user with this email already exists
	var existing model.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("User '%s' already exists, skipping...", email)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Error: Failed to hash password:", err)
	}

	now := time.Now()
	passwordHash := string(hashed)
	user := model.User{
		Email:           email,
		PasswordHash:    &passwordHash,
		FullName:        "Demo User",
		Status:          "active",
		EmailVerified:   true,
		EmailVerifiedAt: &now,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatal("Error: Failed to create user:", err)
	}

	log.Printf("Created verified user %s (%s)", user.Email, user.Id)
	log.Println("Seeding completed!")
}
