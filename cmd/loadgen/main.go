package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// loadgen fires concurrent purchase requests for one product at a running
// server and checks that successes never exceed the available stock.
//
// Required env: TOKEN (a client JWT), PRODUCT_ID, STOCK (stock before the run).
// Optional: BASE_URL (default http://localhost:8080), REQUESTS (default 50).

func main() {
	baseURL := getEnv("BASE_URL", "http://localhost:8080")
	token := os.Getenv("TOKEN")
	productID := os.Getenv("PRODUCT_ID")
	if token == "" || productID == "" {
		log.Fatal("TOKEN and PRODUCT_ID environment variables are required")
	}
	stock := mustAtoi(os.Getenv("STOCK"))
	totalRequests := 50
	if v := os.Getenv("REQUESTS"); v != "" {
		totalRequests = mustAtoi(v)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	var successCount atomic.Int32
	var stockFailCount atomic.Int32
	var errorCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			body, _ := json.Marshal(map[string]interface{}{
				"requestId": uuid.New().String(),
				"products": []map[string]interface{}{
					{"productId": productID, "quantity": 1},
				},
			})

			req, err := http.NewRequest(http.MethodPost, baseURL+"/client/purchase", bytes.NewReader(body))
			if err != nil {
				errorCount.Add(1)
				return
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := client.Do(req)
			if err != nil {
				errorCount.Add(1)
				return
			}
			resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusCreated:
				successCount.Add(1)
			case http.StatusBadRequest:
				stockFailCount.Add(1)
			default:
				errorCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	stockFail := stockFailCount.Load()
	errs := errorCount.Load()

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Initial Stock:      %d\n", stock)
	fmt.Printf("Total Requests:     %d\n", totalRequests)
	fmt.Printf("Successful:         %d\n", success)
	fmt.Printf("Out of Stock:       %d\n", stockFail)
	fmt.Printf("Errors:             %d\n", errs)
	fmt.Printf("Duration:           %v\n", elapsed)
	fmt.Println("=======================================")

	expected := int32(stock)
	if int32(totalRequests) < expected {
		expected = int32(totalRequests)
	}
	if success == expected {
		fmt.Printf("PASS: exactly %d purchases succeeded\n", expected)
	} else {
		fmt.Printf("FAIL: expected %d successes, got %d (oversell or undersell)\n", expected, success)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid number %q", s)
	}
	return n
}
