package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"boardswap/internal/market"

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

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptInt(label string, min int) (int, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(text)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

// promptPassword reads without echo when stdin is a terminal, falling back
// to a plain line read when it is not (pipes, tests).
func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func renderGames(title string, games []market.Game) {
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
	if len(games) == 0 {
		printInfo("No games found.")
		return
	}
	fmt.Printf("%-6s %-26s %-18s %6s %-10s %-10s %6s %6s\n", "ID", "NAME", "PUBLISHER", "YEAR", "SYSTEM", "COND", "OWNER", "HANDS")
	for _, g := range games {
		fmt.Printf("%-6d %-26s %-18s %6d %-10s %-10s %6d %6d\n",
			g.ID,
			truncate(g.Name, 26),
			truncate(g.Publisher, 18),
			g.YearPublished,
			truncate(g.System, 10),
			truncate(g.Condition, 10),
			g.OwnerID,
			g.PreviousOwners,
		)
	}
	fmt.Println()
}

func renderOffers(title string, offers []market.TradeOffer) {
	accent.Printf("\n== %s ==\n", strings.ToUpper(title))
	if len(offers) == 0 {
		printInfo("No trade offers.")
		return
	}
	fmt.Printf("%-6s %-8s %-10s %-10s %-10s %-10s %-16s\n", "TRADE", "STATUS", "SENDER", "OFFERS", "WANTS", "RECEIVER", "CREATED")
	for _, o := range offers {
		fmt.Printf("%-6d %-8s %-10d %-10d %-10d %-10d %-16s\n",
			o.TradeID,
			o.Status,
			o.SenderID,
			o.OfferedGameID,
			o.DesiredGameID,
			o.ReceiverID,
			o.CreatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	fmt.Println()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
