// Command tokenhash prints the bcrypt hash of an API token for
// GRPC_AUTH_TOKEN_HASH.
//
//	go run ./cmd/tokenhash <token>
package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: tokenhash <token>")
		os.Exit(2)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hash token:", err)
		os.Exit(1)
	}
	fmt.Println(string(hash))
}
