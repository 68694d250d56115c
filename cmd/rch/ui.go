package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"riches/internal/game"
	"riches/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	fmt.Printf("%s: ", label)
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func tierStyle(t game.Tier) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	if t.Color != "" {
		style = style.Foreground(lipgloss.Color(t.Color))
	}
	return style
}

func renderTiers(tiers game.TierTable) {
	accent.Println("\n== TIERS ==")
	fmt.Printf("%-4s %-14s %18s %14s\n", "RANK", "TIER", "FROM BALANCE", "PER CLAIM")
	for _, t := range tiers {
		name := tierStyle(t).Render(fmt.Sprintf("%-14s", t.Name))
		fmt.Printf("%-4d %s %18s %14s\n", t.Rank, name, comma(t.MinimumBalance), comma(t.ClickIncome))
	}
	fmt.Println()
}

func renderCatalog(c game.Catalog) {
	accent.Printf("\n== %s ==\n", strings.ToUpper(string(c.Kind)))
	fmt.Printf("%-4s %-22s %16s %14s %14s\n", "ID", "NAME", "COST", "INCOME/S", "RESALE")
	for _, e := range c.Entries {
		fmt.Printf("%-4d %-22s %16s %14s %14s\n",
			e.ID,
			truncate(e.Emoji+" "+e.Name, 22),
			comma(e.Cost),
			success.Sprint("+"+comma(e.IncomeRate)),
			comma(game.SalePrice(e.Cost)),
		)
	}
	fmt.Println()
}

func renderRoster(players []store.Player, tiers game.TierTable) {
	accent.Println("\n== ROSTER ==")
	if len(players) == 0 {
		printInfo("No players yet.")
		return
	}
	fmt.Printf("%-4s %-24s %-12s %18s %8s %6s\n", "#", "PLAYER", "TIER", "BALANCE", "CLICKS", "ADMIN")
	for i, p := range players {
		status := fmt.Sprintf("%-12s", truncate(p.Status, 12))
		if t, ok := tiers.ByName(p.Status); ok {
			status = tierStyle(t).Render(status)
		}
		admin := ""
		if p.IsAdmin {
			admin = warn.Sprint("yes")
		}
		fmt.Printf("%-4d %-24s %s %18s %8d %6s\n", i+1, truncate(p.Username, 24), status, comma(p.Balance), p.TotalClicks, admin)
	}
	fmt.Println()
}

// describeError turns engine errors into short player-facing text.
func describeError(err error) string {
	switch {
	case errors.Is(err, game.ErrInsufficientFunds):
		return "Not enough money."
	case errors.Is(err, game.ErrCooldownActive):
		return "Slow down, the claim is cooling off."
	case errors.Is(err, game.ErrInvalidAmount):
		return "Invalid amount."
	case errors.Is(err, game.ErrTargetNotFound):
		return "No such player in the roster."
	case errors.Is(err, game.ErrUnknownTier):
		return "No such tier."
	case errors.Is(err, game.ErrInvalidCredentials):
		return "Wrong login or password."
	case errors.Is(err, game.ErrRemoteUnavailable):
		return "Store unreachable, try again later."
	default:
		return err.Error()
	}
}

func comma(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.WriteString(sign)
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
