package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// Prints a fresh API key and the bcrypt hash to put in SITES_API_KEY_HASH.
func main() {
	var (
		key  = flag.String("key", "", "hash this key instead of generating one")
		cost = flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	)
	flag.Parse()

	if *key == "" {
		buf := make([]byte, 24)
		if _, err := rand.Read(buf); err != nil {
			log.Fatal(err)
		}
		*key = hex.EncodeToString(buf)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(*key), *cost)
	if err != nil {
		log.Fatal("bcrypt error: ", err)
	}

	fmt.Printf("API key:            %s\n", *key)
	fmt.Printf("SITES_API_KEY_HASH=%s\n", hashed)
}
