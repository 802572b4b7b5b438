package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sagehealth/sage-client/assistant"
	"github.com/sagehealth/sage-client/client"
	"github.com/sagehealth/sage-client/internal/config"
)

var serviceURL string
var debug bool
var token string

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sage",
		Short: "Sage CLI for medical-report analysis sessions",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.InitLogger()

			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
				os.Setenv("SAGE_DEBUG", "true")
				log.Debug().Msg("debug logging enabled")
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	defaultURL := getEnv("SAGE_SERVICE_URL", "http://localhost:8000")
	rootCmd.PersistentFlags().StringVar(&serviceURL, "service-url", defaultURL, "Base URL of the Sage analysis service")
	rootCmd.PersistentFlags().StringVar(&token, "token", getEnv("SAGE_TOKEN", ""), "Bearer token from a previous login")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")

	// Sub-commands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newSignupCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newNewSessionCmd())
	rootCmd.AddCommand(newDeleteSessionCmd())
	rootCmd.AddCommand(newTranscriptCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newRiskCmd())

	return rootCmd
}

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and print the user id and token",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serviceURL)
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			start := time.Now()
			lr, err := c.Login(ctx, email, password)
			elapsed := time.Since(start)

			if err != nil {
				log.Error().Err(err).Str("email", email).Dur("elapsed", elapsed).Msg("login failed")
				return err
			}

			log.Debug().Str("user_id", lr.User.ID).Dur("elapsed", elapsed).Msg("login completed")
			fmt.Printf("Signed in: %s (%s)\n", lr.User.Name, lr.User.ID)
			fmt.Printf("Token: %s\n", lr.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newSignupCmd() *cobra.Command {
	var name, email, password, confirm string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			api := client.New(serviceURL)
			co := assistant.New(api)
			defer co.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			start := time.Now()
			err := co.SignUp(ctx, name, email, password, confirm)
			elapsed := time.Since(start)

			if err != nil {
				log.Error().Err(err).Str("email", email).Dur("elapsed", elapsed).Msg("signup failed")
				return err
			}

			snap := co.Snapshot()
			log.Debug().Str("user_id", snap.User.ID).Dur("elapsed", elapsed).Msg("signup completed")
			fmt.Printf("Account created: %s (%s)\n", snap.User.Name, snap.User.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Full name (required)")
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required)")
	cmd.Flags().StringVar(&confirm, "confirm-password", "", "Password confirmation (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("confirm-password")

	return cmd
}

func newSessionsCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List a user's analysis sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serviceURL, client.WithToken(token))
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			start := time.Now()
			sessions, err := c.ListSessions(ctx, userID)
			elapsed := time.Since(start)

			if err != nil {
				log.Error().Err(err).Str("user_id", userID).Dur("elapsed", elapsed).Msg("list sessions failed")
				return err
			}

			log.Debug().Int("count", len(sessions)).Dur("elapsed", elapsed).Msg("list sessions completed")
			if len(sessions) == 0 {
				fmt.Println("No sessions.")
				return nil
			}
			for _, s := range sessions {
				fmt.Printf("%s  %s  %s\n", s.ID, s.CreatedAt.Format(time.RFC3339), s.Title)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func newNewSessionCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "new-session",
		Short: "Create a new empty analysis session",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serviceURL, client.WithToken(token))
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			start := time.Now()
			sess, err := c.CreateSession(ctx, userID)
			elapsed := time.Since(start)

			if err != nil {
				log.Error().Err(err).Str("user_id", userID).Dur("elapsed", elapsed).Msg("create session failed")
				return err
			}

			log.Debug().Str("session_id", sess.ID).Dur("elapsed", elapsed).Msg("create session completed")
			fmt.Printf("Session created: %s - %s\n", sess.ID, sess.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "User ID (required)")
	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func newDeleteSessionCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "delete-session",
		Short: "Delete a session and its transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serviceURL, client.WithToken(token))
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			start := time.Now()
			err := c.DeleteSession(ctx, sessionID)
			elapsed := time.Since(start)

			if err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Dur("elapsed", elapsed).Msg("delete session failed")
				return err
			}

			log.Debug().Str("session_id", sessionID).Dur("elapsed", elapsed).Msg("delete session completed")
			fmt.Printf("Session deleted: %s\n", sessionID)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID (required)")
	_ = cmd.MarkFlagRequired("session-id")

	return cmd
}

func newTranscriptCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Print a session's transcript in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serviceURL, client.WithToken(token))
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			msgs, err := c.ListMessages(ctx, sessionID)
			if err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("fetch messages failed")
				return err
			}

			if len(msgs) == 0 {
				fmt.Println("Empty transcript (intake mode).")
				return nil
			}
			for _, m := range msgs {
				fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04"), m.Role, m.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID (required)")
	_ = cmd.MarkFlagRequired("session-id")

	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var userID, sessionID, file, patientName, gender string
	var age int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Upload a report and run the full analysis pipeline on a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			co, err := selectedCoordinator(cmd.Context(), userID, sessionID)
			if err != nil {
				return err
			}
			defer co.Close()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("cannot open report: %w", err)
			}
			defer func() { _ = f.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			start := time.Now()
			err = co.AnalyzeReport(ctx, assistant.AnalyzeRequest{
				PatientName: patientName,
				Age:         age,
				Gender:      gender,
				FileName:    filepath.Base(file),
				File:        f,
			})
			elapsed := time.Since(start)

			if err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Dur("elapsed", elapsed).Msg("analysis failed")
				return err
			}

			snap := co.Snapshot()
			log.Debug().
				Str("session_id", sessionID).
				Str("view", snap.View.String()).
				Int("messages", len(snap.Active.Messages)).
				Dur("elapsed", elapsed).
				Msg("analysis completed")

			if st := co.Status(); st.Err != "" {
				fmt.Printf("Warning: %s\n", st.Err)
			}
			printRisk(snap.Risk)
			printLastReply(snap)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "User ID (required)")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID (required)")
	cmd.Flags().StringVar(&file, "file", "", "Path to the report file (required)")
	cmd.Flags().StringVar(&patientName, "patient-name", "", "Patient full name (required)")
	cmd.Flags().IntVar(&age, "age", 0, "Patient age (required)")
	cmd.Flags().StringVar(&gender, "gender", "", "Patient gender (required)")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("session-id")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("patient-name")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("gender")

	return cmd
}

func newAskCmd() *cobra.Command {
	var userID, sessionID, prompt string

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask a follow-up question about an analyzed report",
		RunE: func(cmd *cobra.Command, args []string) error {
			co, err := selectedCoordinator(cmd.Context(), userID, sessionID)
			if err != nil {
				return err
			}
			defer co.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			start := time.Now()
			err = co.SendMessage(ctx, prompt)
			elapsed := time.Since(start)

			if err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Dur("elapsed", elapsed).Msg("follow-up failed")
				return err
			}

			log.Debug().Str("session_id", sessionID).Dur("elapsed", elapsed).Msg("follow-up completed")
			printLastReply(co.Snapshot())
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "User ID (required)")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID (required)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Question to ask (required)")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("session-id")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func newRiskCmd() *cobra.Command {
	var userID, sessionID string

	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Compute per-condition risk scores for an analyzed session",
		RunE: func(cmd *cobra.Command, args []string) error {
			co, err := selectedCoordinator(cmd.Context(), userID, sessionID)
			if err != nil {
				return err
			}
			defer co.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			start := time.Now()
			err = co.RefreshRisk(ctx)
			elapsed := time.Since(start)

			if err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Dur("elapsed", elapsed).Msg("risk scoring failed")
				return err
			}

			log.Debug().Str("session_id", sessionID).Dur("elapsed", elapsed).Msg("risk scoring completed")
			printRisk(co.Snapshot().Risk)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "User ID (required)")
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session ID (required)")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("session-id")

	return cmd
}

// selectedCoordinator builds a coordinator with the given user identity,
// loads the session list, and makes sessionID active.
func selectedCoordinator(ctx context.Context, userID, sessionID string) (*assistant.Coordinator, error) {
	api := client.New(serviceURL, client.WithToken(token))
	co := assistant.New(api)
	co.UseUser(client.User{ID: userID}, token)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := co.RefreshSessions(ctx); err != nil {
		co.Close()
		return nil, err
	}
	if err := co.SelectSession(ctx, sessionID); err != nil {
		co.Close()
		return nil, err
	}
	return co, nil
}

func printRisk(risk *client.RiskAssessment) {
	if risk == nil {
		return
	}
	fmt.Printf("Risk scores:\n")
	fmt.Printf("  cardiovascular: %3.0f  %s\n", risk.Cardiovascular.Score, risk.Cardiovascular.Justification)
	fmt.Printf("  diabetes:       %3.0f  %s\n", risk.Diabetes.Score, risk.Diabetes.Justification)
	fmt.Printf("  liver:          %3.0f  %s\n", risk.Liver.Score, risk.Liver.Justification)
}

func printLastReply(snap assistant.Snapshot) {
	if snap.Active == nil {
		return
	}
	for i := len(snap.Active.Messages) - 1; i >= 0; i-- {
		if m := snap.Active.Messages[i]; m.Role == client.RoleAssistant {
			fmt.Printf("\n%s\n", m.Content)
			return
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
