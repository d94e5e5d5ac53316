package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qs3c/cafe_sub_server/internal/client"
	"github.com/qs3c/cafe_sub_server/internal/model/dto"
	"github.com/qs3c/cafe_sub_server/internal/pkg/credential"
	"github.com/qs3c/cafe_sub_server/internal/pkg/jwt"
)

func tokenCmd() *cobra.Command {
	var id credential.Identity

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed development token from the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt.secret is not configured in %s", configPath)
			}
			expire := cfg.JWT.ExpireHours
			if expire <= 0 {
				expire = 24
			}

			signed, err := jwt.GenerateToken(id, cfg.JWT.Secret, expire)
			if err != nil {
				return err
			}
			fmt.Println(signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&id.SubjectID, "subject", "", "Subject id")
	cmd.Flags().StringVar(&id.Role, "role", credential.RoleCustomer, "Role (customer, staff, barista)")
	cmd.Flags().StringVar(&id.DisplayName, "name", "", "Display name")
	cmd.Flags().StringVar(&id.Phone, "phone", "", "Phone number")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List plans on sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := newClient()
			plans, err := c.Plans(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(plans)
			}

			fmt.Printf("%-6s %-24s %-16s %10s %6s %6s %6s\n", "ID", "NAME", "PRODUCT", "PRICE", "DAYS", "QUOTA", "OWNED")
			fmt.Println(strings.Repeat("-", 81))
			for _, p := range plans {
				owned := ""
				if p.Owned {
					owned = "yes"
				}
				fmt.Printf("%-6d %-24s %-16s %10d %6d %6d %6s\n", p.PlanID, p.Name, p.ProductName, p.Price, p.DurationDays, p.DailyQuota, owned)
			}
			return nil
		},
	}
}

func buyCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "buy [plan-id]",
		Short: "Create an order and optionally wait for the transfer to settle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid plan id %q", args[0])
			}

			c, cfg := newClient()
			order, err := c.CreateOrder(cmd.Context(), planID)
			if err != nil {
				return err
			}
			if asJSON {
				if err := printJSON(order); err != nil {
					return err
				}
			} else {
				printOrder(order)
			}
			if !wait {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Println("\nWaiting for the transfer to settle (Ctrl+C to stop)...")
			poller := client.NewSettlementPoller(c, order,
				client.WithInterval(cfg.Client.PollInterval),
				client.OnSettled(func(s *dto.SettlementStatus) {
					fmt.Printf("Payment confirmed, active subscriptions for plan %d: %d\n", s.PlanID, s.ActiveCount)
				}),
			)
			_, err = poller.Run(ctx)
			return err
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Poll until the payment settles")

	return cmd
}

func printOrder(o *dto.OrderResult) {
	fmt.Printf("Order:      %d\n", o.OrderID)
	fmt.Printf("Amount:     %d\n", o.Amount)
	fmt.Printf("Bank:       %s %s (%s)\n", o.BankName, o.BankAccount, o.AccountHolder)
	fmt.Printf("Reference:  %s\n", o.TransferReference)
	if o.QRURL != "" {
		fmt.Printf("QR:         %s\n", o.QRURL)
	}
	fmt.Printf("Expires at: %s\n", o.ExpiresAt)
}

func subsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subs",
		Short: "List my subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _ := newClient()
			list, err := c.MySubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(list)
			}

			for _, s := range list {
				fmt.Printf("#%d %s [%s]", s.SubscriptionID, s.PlanName, s.Status)
				if s.EndDate != "" {
					fmt.Printf(" until %s", s.EndDate)
				}
				fmt.Printf(" today %d/%d\n", s.UsedToday, s.DailyQuota)
			}
			return nil
		},
	}
}
