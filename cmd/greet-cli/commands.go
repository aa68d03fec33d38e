package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/govm-net/greeting/core"
	"github.com/govm-net/greeting/greeting"
	"github.com/govm-net/greeting/storage/db"
)

var (
	adminAddr  string
	callerAddr string
	userAddr   string
	greetName  string
	newAdmin   string
	charLimit  uint32
)

func openRegistry() (*greeting.Registry, error) {
	env, err := db.NewEnv(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return greeting.NewRegistry(env), nil
}

func parseAddr(name, value string) (core.Address, error) {
	if value == "" {
		return core.ZeroAddress, fmt.Errorf("%s address is required", name)
	}
	addr := core.AddressFromString(value)
	if addr == core.ZeroAddress {
		return core.ZeroAddress, fmt.Errorf("invalid %s address: %s", name, value)
	}
	return addr, nil
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the registry with an admin identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		admin, err := parseAddr("admin", adminAddr)
		if err != nil {
			return err
		}
		r, err := openRegistry()
		if err != nil {
			return err
		}
		if err := r.Initialize(admin); err != nil {
			return err
		}
		fmt.Printf("initialized, admin %s\n", admin)
		return nil
	},
}

var setLimitCmd = &cobra.Command{
	Use:   "set-limit",
	Short: "Set the greeting character limit (admin only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := parseAddr("caller", callerAddr)
		if err != nil {
			return err
		}
		r, err := openRegistry()
		if err != nil {
			return err
		}
		if err := r.SetLimit(caller, charLimit); err != nil {
			return err
		}
		fmt.Printf("character limit set to %d\n", charLimit)
		return nil
	},
}

var greetCmd = &cobra.Command{
	Use:   "greet",
	Short: "Record a greeting for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := parseAddr("user", userAddr)
		if err != nil {
			return err
		}
		r, err := openRegistry()
		if err != nil {
			return err
		}
		reply, err := r.Greet(user, greetName)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the global greeting counter, or a user's with --user",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRegistry()
		if err != nil {
			return err
		}
		if userAddr != "" {
			user, err := parseAddr("user", userAddr)
			if err != nil {
				return err
			}
			count, err := r.CountForUser(user)
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		}
		count, err := r.Count()
		if err != nil {
			return err
		}
		fmt.Println(count)
		return nil
	},
}

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Print a user's last accepted greeting",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := parseAddr("user", userAddr)
		if err != nil {
			return err
		}
		r, err := openRegistry()
		if err != nil {
			return err
		}
		name, ok, err := r.LastGreeting(user)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no greeting recorded")
			return nil
		}
		fmt.Println(name)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the global greeting counter (admin only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := parseAddr("caller", callerAddr)
		if err != nil {
			return err
		}
		r, err := openRegistry()
		if err != nil {
			return err
		}
		if err := r.ResetCount(caller); err != nil {
			return err
		}
		fmt.Println("counter reset")
		return nil
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer the admin role (admin only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := parseAddr("caller", callerAddr)
		if err != nil {
			return err
		}
		next, err := parseAddr("new admin", newAdmin)
		if err != nil {
			return err
		}
		r, err := openRegistry()
		if err != nil {
			return err
		}
		if err := r.TransferAdmin(caller, next); err != nil {
			return err
		}
		fmt.Printf("admin transferred to %s\n", next)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&adminAddr, "admin", "", "admin address (hex)")

	setLimitCmd.Flags().StringVar(&callerAddr, "caller", "", "caller address (hex)")
	setLimitCmd.Flags().Uint32Var(&charLimit, "limit", 0, "character limit")

	greetCmd.Flags().StringVar(&userAddr, "user", "", "user address (hex)")
	greetCmd.Flags().StringVar(&greetName, "name", "", "greeting text")

	countCmd.Flags().StringVar(&userAddr, "user", "", "user address (hex)")

	lastCmd.Flags().StringVar(&userAddr, "user", "", "user address (hex)")

	resetCmd.Flags().StringVar(&callerAddr, "caller", "", "caller address (hex)")

	transferCmd.Flags().StringVar(&callerAddr, "caller", "", "caller address (hex)")
	transferCmd.Flags().StringVar(&newAdmin, "new-admin", "", "new admin address (hex)")
}
