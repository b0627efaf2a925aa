package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Wang-tianhao/edge-auth-go/jwtauth"
)

func main() {
	var (
		secret  = flag.String("secret", os.Getenv("EDGE_AUTH_SECRET"), "Signing secret, verbatim or base64:<std base64> (minimum 64 bytes)")
		issuer  = flag.String("issuer", jwtauth.DefaultIssuer, "Token issuer")
		subject = flag.String("sub", "user123", "Subject (user ID)")
		email   = flag.String("email", "user@example.com", "Email address")
		roles   = flag.String("roles", "ROLE_USER", "Comma separated roles")
		plan    = flag.String("plan", "", "Subscription plan")
		kind    = flag.String("kind", string(jwtauth.KindAccess), "Token kind: access or refresh")
		ttl     = flag.Duration("ttl", 0, "Token lifetime (default: the kind's default lifetime)")
	)

	flag.Parse()

	key, err := jwtauth.ParseSecret(*secret)
	if err != nil {
		log.Fatalf("Invalid secret: %v", err)
	}

	tokenKind := jwtauth.TokenKind(*kind)
	if tokenKind != jwtauth.KindAccess && tokenKind != jwtauth.KindRefresh {
		log.Fatalf("Unknown kind %q", *kind)
	}

	opts := []jwtauth.ConfigOption{jwtauth.WithHS512(key), jwtauth.WithIssuer(*issuer)}
	if *ttl > 0 {
		opts = append(opts, jwtauth.WithAccessTokenTTL(*ttl), jwtauth.WithRefreshTokenTTL(*ttl))
	}
	cfg, err := jwtauth.NewConfig(opts...)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	var roleList []string
	for _, r := range strings.Split(*roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}

	token, claims, err := jwtauth.NewIssuer(cfg).Issue(jwtauth.Identity{
		UserID: *subject,
		Email:  *email,
		Roles:  roleList,
		Plan:   *plan,
	}, tokenKind, time.Now())
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println("\n=== JWT Token Generated ===")
	fmt.Printf("\nToken: %s\n\n", token)
	fmt.Println("Claims:")
	fmt.Printf("  Subject: %s\n", claims.Subject)
	fmt.Printf("  Email:   %s\n", claims.Email)
	fmt.Printf("  Roles:   %s\n", strings.Join(claims.Roles, ","))
	fmt.Printf("  Plan:    %s\n", claims.Plan)
	fmt.Printf("  Kind:    %s\n", claims.Kind)
	fmt.Printf("  JTI:     %s\n", claims.JWTID)
	fmt.Printf("  Expires: %s\n\n", claims.ExpiresAt.Format(time.RFC3339))
	if tokenKind == jwtauth.KindAccess {
		fmt.Println("Usage:")
		fmt.Printf("  curl -H 'Authorization: Bearer %s' http://localhost:8080/api/v1/me\n\n", token)
	}
}
