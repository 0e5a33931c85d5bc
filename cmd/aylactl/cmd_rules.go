package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/rules"
)

var (
	rulesDSN         string
	rulesDeleteForce bool

	destinationTypes []string
)

// rulesCmd is the parent command for rule management
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage cloud rules",
	Long: `Manage rules evaluated by the Ayla rules service.

Available subcommands:
  list    - List rules, optionally only those naming a device
  enable  - Turn a rule on
  disable - Turn a rule off
  delete  - Delete a rule, optionally with its actions and destinations`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runRulesList),
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <rule-uuid>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runRulesEnable),
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <rule-uuid>",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runRulesDisable),
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <rule-uuid>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  signedIn(runRulesDelete),
}

// destinationsCmd is the parent command for message destinations
var destinationsCmd = &cobra.Command{
	Use:   "destinations",
	Short: "Manage notification destinations",
}

var destinationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List SMS, email and push destinations",
	Args:  cobra.NoArgs,
	RunE:  signedIn(runDestinationsList),
}

func init() {
	rulesListCmd.Flags().StringVar(&rulesDSN, "dsn", "", "only rules that reference this device")
	rulesDeleteCmd.Flags().BoolVar(&rulesDeleteForce, "force", false, "also delete the rule's actions and their destinations")
	rulesCmd.AddCommand(rulesListCmd, rulesEnableCmd, rulesDisableCmd, rulesDeleteCmd)

	destinationsListCmd.Flags().StringSliceVar(&destinationTypes, "type", nil, "destination types (sms, email, push)")
	destinationsCmd.AddCommand(destinationsListCmd)
}

func runRulesList(ctx context.Context, a *app, _ []string) error {
	var (
		list []rules.Rule
		err  error
	)
	if rulesDSN != "" {
		list, err = a.rules.FetchRulesForDevice(ctx, rulesDSN)
	} else {
		list, err = a.rules.FetchRules(ctx)
	}
	if err != nil {
		return err
	}
	return printRules(a, list...)
}

func printRules(a *app, list ...rules.Rule) error {
	rows := make([][]string, 0, len(list))
	for _, r := range list {
		rows = append(rows, []string{r.UUID, r.Name, strconv.FormatBool(r.Enabled), r.Expression, strconv.Itoa(len(r.ActionIDs))})
	}
	return a.out.print(list, []string{"UUID", "NAME", "ENABLED", "EXPRESSION", "ACTIONS"}, rows)
}

func runRulesEnable(ctx context.Context, a *app, args []string) error {
	r, err := a.rules.Enable(ctx, args[0])
	if err != nil {
		return err
	}
	return printRules(a, *r)
}

func runRulesDisable(ctx context.Context, a *app, args []string) error {
	r, err := a.rules.Disable(ctx, args[0])
	if err != nil {
		return err
	}
	return printRules(a, *r)
}

func runRulesDelete(ctx context.Context, a *app, args []string) error {
	mode := rules.DeleteRuleOnly
	if rulesDeleteForce {
		mode = rules.ForceAll
	}
	if err := a.rules.DeleteRule(ctx, args[0], mode); err != nil {
		return err
	}
	a.out.message("deleted rule %s", args[0])
	return nil
}

func runDestinationsList(ctx context.Context, a *app, _ []string) error {
	list, err := a.messages.FetchByTypes(ctx, destinationTypes...)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(list))
	for _, d := range list {
		rows = append(rows, []string{d.UUID, strings.ToUpper(d.Type), d.DeliverTo, orDash(d.Title)})
	}
	return a.out.print(list, []string{"UUID", "TYPE", "DELIVER TO", "TITLE"}, rows)
}
