package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fentz26/sitechat/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	RunE:  runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and log in",
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored session token",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show who is currently signed in",
	RunE:  runWhoami,
}

var (
	authEmail    string
	authPassword string
)

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, signupCmd} {
		cmd.Flags().StringVar(&authEmail, "email", "", "Account email (required)")
		cmd.Flags().StringVar(&authPassword, "password", "", "Account password (required)")
		cmd.MarkFlagRequired("email")
		cmd.MarkFlagRequired("password")
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.session.Login(context.Background(), authEmail, authPassword) != session.StatusAuthenticated {
		return fmt.Errorf("login failed: %s", a.session.Current().LastError)
	}
	fmt.Printf("✓ Logged in as %s\n", a.session.Current().Identity.Email)
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.session.Signup(context.Background(), authEmail, authPassword) != session.StatusAuthenticated {
		return fmt.Errorf("signup failed: %s", a.session.Current().LastError)
	}
	fmt.Printf("✓ Account created, logged in as %s\n", a.session.Current().Identity.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	a.session.Logout()
	fmt.Println("✓ Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.session.Check(context.Background()) != session.StatusAuthenticated {
		fmt.Println("Not signed in. Use 'sitechat login' to authenticate.")
		return nil
	}
	fmt.Printf("Signed in as %s\n", a.session.Current().Identity.Email)
	return nil
}
