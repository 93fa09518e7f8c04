// Package gotrue is the application facing auth client.
//
// A Client composes an authapi.Client for network calls, a session.Manager
// for credential state and an events.Notifier for auth state changes. Every
// flow that establishes a new identity starts by clearing the stored session,
// stores the session the service returns, and then announces it. Sign-out
// always clears local state, whatever the service answers.
//
// Example:
//
//	api := authapi.NewClient("https://project.example.co/auth/v1", anonKey)
//	client, err := gotrue.New(gotrue.Config{
//		API:   api,
//		Store: credstore.NewFileStore(dir),
//	})
//	if err != nil {
//		return err
//	}
//
//	client.OnAuthStateChange(func(n events.Notification) {
//		log.Printf("auth: %s", n.Event)
//	})
//
//	if _, err := client.SignInWithPassword(ctx, gotrue.PasswordCredentials{
//		Email:    "ada@example.com",
//		Password: "correct horse",
//	}); err != nil {
//		return err
//	}
//
//	// Always valid when returned; refreshed transparently when needed.
//	s, err := client.GetSession(ctx)
package gotrue
