// Package main is the entry point for the investments API binary.
package main

import (
	"os"

	_ "github.com/investae/investments-api/docs"
	"github.com/investae/investments-api/internal/cli"
)

// @title                      Investments API
// @version                    1.0
// @description                Identity, access control and investment records for the investments back-office.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the JWT returned by /api/auth/login.
func main() {
	os.Exit(cli.Execute())
}
