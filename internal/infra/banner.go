package infra

import (
	"fmt"
	"strings"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner with exchange-specific warnings.
func PrintBanner(cfg *Config) {
	exchange := strings.ToUpper(cfg.Exchange.Name)
	version := cfg.App.Version

	color := ColorCyan
	desc := "INTERNAL SIMULATION"
	if exchange != "PAPER" {
		color = ColorRed
		desc = "LIVE EXCHANGE TRADING"
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#                 🤖 TradeBot Trading System              #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   EXCHANGE: %-35s #%s\n", color, exchange, ColorReset)
	fmt.Printf("%s#   TYPE:     %-35s #%s\n", color, desc, ColorReset)
	fmt.Printf("%s#   VERSION:  %-35s #%s\n", color, version, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)

	if exchange != "PAPER" {
		fmt.Printf("%s#   ⚠️  WARNING: YOU ARE TRADING WITH REAL MONEY  ⚠️      #%s\n", ColorRed, ColorReset)
		fmt.Printf("%s#   VERIFY YOUR STRATEGY ON THE PAPER EXCHANGE FIRST      #%s\n", ColorRed, ColorReset)
	}

	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
