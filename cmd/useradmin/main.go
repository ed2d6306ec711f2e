// Command useradmin creates gateway user records. The gateway itself
// has no user-management API; operators seed credentials with this
// tool.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joegr/ReTurni/internal/config"
	"github.com/joegr/ReTurni/internal/database"
	"github.com/joegr/ReTurni/internal/models"
	"github.com/joegr/ReTurni/internal/repository"
	"github.com/joegr/ReTurni/internal/services"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yaml", "Path to config file")
	email := pflag.String("email", "", "Email address for the new user")
	password := pflag.String("password", "", "Password for the new user")
	role := pflag.String("role", string(models.RoleViewer), "Role for the new user")
	pflag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "Usage: useradmin --email <email> --password <password> [--role <role>]")
		os.Exit(2)
	}

	if len(models.PermissionsForRole(models.Role(*role))) == 0 {
		fmt.Fprintf(os.Stderr, "Unknown role %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg.Database.ToDBConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	hash, err := services.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        *email,
		PasswordHash: hash,
		Role:         models.Role(*role),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := repository.NewUserRepository(db).Create(ctx, user); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created user %s (%s) with role %s\n", user.ID, user.Email, user.Role)
}
