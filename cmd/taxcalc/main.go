// Command taxcalc prints the monthly tax breakdown for a liquid income.
//
//	taxcalc -income 9900 -dependents 2
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mcarneiro/airbnb-organizer/internal/cli"
	"github.com/mcarneiro/airbnb-organizer/internal/core"
	"github.com/mcarneiro/airbnb-organizer/internal/log"
	"github.com/mcarneiro/airbnb-organizer/internal/tax"
)

func main() {
	income := flag.String("income", "", "liquid monthly income, e.g. 9900 or 9.900,00")
	dependents := flag.Int("dependents", 0, "number of dependents")
	jurisdiction := flag.String("jurisdiction", string(tax.Brazil), "tax table to use")
	flag.Parse()

	logger := cli.SetupLogger(nil)

	liquid, err := core.ParseSignedMoney(*income)
	if err != nil {
		logger.Error("Invalid income", "income", *income, log.FieldError, err)
		os.Exit(2)
	}
	if *dependents < 0 {
		logger.Error("Invalid dependents", log.FieldError, core.ErrInvalidDependents)
		os.Exit(2)
	}
	calc, err := tax.Get(tax.Jurisdiction(strings.ToUpper(*jurisdiction)))
	if err != nil {
		logger.Error("Unknown jurisdiction", "jurisdiction", *jurisdiction, "available", tax.Jurisdictions(), log.FieldError, err)
		os.Exit(2)
	}

	b := calc.CalculateTax(liquid, *dependents)
	fmt.Printf("Liquid income:  %12s\n", liquid)
	fmt.Printf("Deduction:      %12s\n", b.Deduction)
	fmt.Printf("Taxable income: %12s\n", b.TaxableIncome)
	fmt.Printf("Rate:           %11s%%\n", b.Rate.Shift(2).String())
	fmt.Printf("Tax owed:       %12s\n", b.TaxOwed)
	fmt.Printf("Net:            %12s\n", liquid.Sub(b.TaxOwed))
}
