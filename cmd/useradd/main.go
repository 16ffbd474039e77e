// Command useradd creates a user account in the configured store.
//
//	useradd --username alice --password secret [--first-name A] [--last-name B] [--staff]
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/iliyamo/room-booking/internal/config"
	"github.com/iliyamo/room-booking/internal/database"
	"github.com/iliyamo/room-booking/internal/service"
)

func main() {
	username := pflag.StringP("username", "u", "", "login name (required)")
	password := pflag.StringP("password", "p", "", "password (required)")
	first := pflag.String("first-name", "", "first name")
	last := pflag.String("last-name", "", "last name")
	staff := pflag.Bool("staff", false, "grant staff access")
	pflag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "useradd: --username and --password are required")
		pflag.Usage()
		os.Exit(2)
	}

	config.LoadDotEnv()
	cfg := config.LoadStore()
	log := config.NewLogger(cfg)
	if !cfg.Persistent() {
		log.Fatal("useradd needs a persistent store; STORE_DRIVER=memory keeps nothing after exit")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, _, err := database.OpenStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer store.Close()

	u, err := service.New(store, nil).Users.Create(ctx, service.UserInput{
		Username:  *username,
		FirstName: *first,
		LastName:  *last,
		Password:  *password,
		IsStaff:   *staff,
	}, cfg.BcryptCost)
	if err != nil {
		log.WithError(err).WithField("username", *username).Fatal("could not create user")
	}
	log.WithFields(logrus.Fields{"id": u.ID, "username": u.Username, "staff": u.IsStaff}).Info("user created")
}
