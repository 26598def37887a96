package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/runwhen-contrib/codecollection-registry-sub002/utils"
)

// hashpw prints a bcrypt hash for ADMIN_PASSWORD_HASH.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: hashpw <password> [cost]")
		os.Exit(1)
	}

	cost := bcrypt.DefaultCost
	if len(os.Args) > 2 {
		parsed, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatalf("invalid cost %q: %v", os.Args[2], err)
		}
		cost = parsed
	}

	hash, err := utils.HashPassword(os.Args[1], cost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	fmt.Println(hash)
}
