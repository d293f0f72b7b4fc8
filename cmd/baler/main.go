package main

import (
	"log"
)

// #region main
func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("baler: %v", err)
	}
}

// #endregion main
