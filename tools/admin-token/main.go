// Command admin-token mints a bearer token for the booking admin API.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/turnly/turnly/libs/auth"
	"github.com/turnly/turnly/libs/config"
)

func main() {
	if err := config.Load(); err != nil {
		fatal(err.Error())
	}
	var (
		secret  = flag.String("secret", config.String("JWT_SECRET", ""), "HS256 signing secret")
		issuer  = flag.String("issuer", config.String("JWT_ISSUER", "turnly"), "token issuer")
		org     = flag.String("org", config.String("ORGANIZATION_ID", ""), "organization id the token is scoped to")
		subject = flag.String("subject", "admin-cli", "token subject (staff user id or email)")
		role    = flag.String("role", auth.RoleOwner, "owner, admin or staff")
		ttl     = flag.Duration("ttl", 12*time.Hour, "token lifetime")
	)
	flag.Parse()

	if strings.TrimSpace(*org) == "" {
		fatal("ORGANIZATION_ID (or -org) is required")
	}
	switch *role {
	case auth.RoleOwner, auth.RoleAdmin, auth.RoleStaff:
	default:
		fatal(fmt.Sprintf("unknown role %q", *role))
	}

	signer, err := auth.NewSigner(*secret, *issuer, *ttl)
	if err != nil {
		fatal(err.Error())
	}
	token, err := signer.Sign(*subject, *org, *role)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Println(token)
}

func fatal(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
