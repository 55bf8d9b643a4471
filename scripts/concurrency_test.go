//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the lending API.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_code> <member1_code> [member2_code ...]
//
// Or use the convenience environment variables:
//
//	BOOK_CODE=<code>  MEMBER_CODES=<c1>,<c2>,...  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Fires N goroutines (one per member) all attempting to borrow the same book
//     simultaneously.
//  2. Prints how many borrows succeeded vs. were rejected, and for what reason.
//  3. The number of successes must never exceed the book's stock: the borrow
//     transaction locks the book row, so concurrent borrows of the last copy
//     serialize and the losers get the no-stock rejection.
//
// Prerequisites:
//   - Server must be running with DATABASE_URL set.
//   - The book and the members must exist (POST /books, POST /members).
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	MemberCode string
	StatusCode int
	Reason     string
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookCode := os.Getenv("BOOK_CODE")
	memberCodesEnv := os.Getenv("MEMBER_CODES")

	var memberCodes []string
	if memberCodesEnv != "" {
		memberCodes = strings.Split(memberCodesEnv, ",")
	}

	args := os.Args[1:]
	if len(args) >= 1 {
		bookCode = args[0]
	}
	if len(args) >= 2 {
		memberCodes = args[1:]
	}

	if bookCode == "" {
		log.Fatal("Usage: BOOK_CODE=<code> MEMBER_CODES=<c1,c2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_code> <member1_code> [member2_code ...]")
	}
	if len(memberCodes) == 0 {
		log.Fatal("At least one member code must be provided via MEMBER_CODES env or positional args")
	}

	fmt.Printf("=== Lending Concurrency Test ===\n")
	fmt.Printf("Server  : %s\n", serverAddr)
	fmt.Printf("Book    : %s\n", bookCode)
	fmt.Printf("Members : %d\n\n", len(memberCodes))

	results := make([]borrowResult, len(memberCodes))
	var wg sync.WaitGroup

	// Fire all goroutines simultaneously using a barrier.
	start := make(chan struct{})

	for i, code := range memberCodes {
		wg.Add(1)
		go func(idx int, memberCode string) {
			defer wg.Done()
			<-start
			results[idx] = attemptBorrow(serverAddr, bookCode, strings.TrimSpace(memberCode))
		}(i, code)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)

	wg.Wait()
	fmt.Println("All requests completed.")
	fmt.Println()

	var borrows, rejections, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] member=%-12s err=%v\n", r.MemberCode, r.Err)
		case r.StatusCode == http.StatusCreated:
			borrows++
			fmt.Printf("  [LOAN] member=%-12s status=%d\n", r.MemberCode, r.StatusCode)
		case r.StatusCode == http.StatusBadRequest:
			rejections++
			fmt.Printf("  [REJ ] member=%-12s status=%d reason=%q\n", r.MemberCode, r.StatusCode, r.Reason)
		default:
			failures++
			fmt.Printf("  [FAIL] member=%-12s status=%d unexpected response\n", r.MemberCode, r.StatusCode)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Borrows    : %d\n", borrows)
	fmt.Printf("Rejections : %d\n", rejections)
	fmt.Printf("Failures   : %d\n", failures)
	fmt.Printf("Total      : %d\n\n", len(memberCodes))

	fmt.Println("--- Invariant Check ---")
	fmt.Println("The borrow transaction locks the book row (SELECT ... FOR UPDATE), so the")
	fmt.Println("number of successful borrows can never exceed the book's stock.")
	fmt.Printf("Borrows recorded: %d — compare against the book's stock to verify.\n", borrows)

	if failures > 0 {
		fmt.Printf("\n[WARNING] %d request(s) failed — check server logs for details.\n", failures)
		os.Exit(1)
	}
}

// attemptBorrow sends POST /loans/borrow for the given member/book pair and
// parses the JSON response.
func attemptBorrow(serverAddr, bookCode, memberCode string) borrowResult {
	url := fmt.Sprintf("%s/loans/borrow", serverAddr)
	body := fmt.Sprintf(`{"memberCode":%q,"bookCode":%q}`, memberCode, bookCode)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		return borrowResult{MemberCode: memberCode, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return borrowResult{MemberCode: memberCode, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad JSON: %s", raw)}
	}

	reason, _ := parsed["error"].(string)
	return borrowResult{
		MemberCode: memberCode,
		StatusCode: resp.StatusCode,
		Reason:     reason,
	}
}
