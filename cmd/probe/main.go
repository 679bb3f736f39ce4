// Command probe fires requests at a running gatewayd instance and reports
// status counts and latency, for smoke tests and quick load checks.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "gatewayd address")
	path := flag.String("path", "/hello", "request path")
	n := flag.Int("n", 100, "total requests")
	c := flag.Int("c", 4, "concurrent probes")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	client := &fasthttp.HostClient{
		Addr:                *addr,
		ReadTimeout:         *timeout,
		WriteTimeout:        *timeout,
		MaxIdleConnDuration: time.Millisecond, // the server closes after each response
	}

	var (
		mu        sync.Mutex
		statuses  = map[int]int{}
		latencies []time.Duration
		failures  int
	)

	work := make(chan struct{}, *n)
	for i := 0; i < *n; i++ {
		work <- struct{}{}
	}
	close(work)

	var wg sync.WaitGroup
	for i := 0; i < *c; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range work {
				req := fasthttp.AcquireRequest()
				resp := fasthttp.AcquireResponse()
				req.SetRequestURI("http://" + *addr + *path)
				req.Header.SetMethod(fasthttp.MethodGet)

				start := time.Now()
				err := client.DoTimeout(req, resp, *timeout)
				d := time.Since(start)

				mu.Lock()
				if err != nil {
					failures++
				} else {
					statuses[resp.StatusCode()]++
					latencies = append(latencies, d)
				}
				mu.Unlock()

				fasthttp.ReleaseRequest(req)
				fasthttp.ReleaseResponse(resp)
			}
		}()
	}
	wg.Wait()

	fmt.Printf("probed %s%s: %d requests, %d concurrent\n", *addr, *path, *n, *c)
	for code, count := range statuses {
		fmt.Printf("  %d: %d\n", code, count)
	}
	if failures > 0 {
		fmt.Printf("  failed: %d\n", failures)
	}
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Printf("  p50=%s p99=%s max=%s\n",
			latencies[len(latencies)/2],
			latencies[len(latencies)*99/100],
			latencies[len(latencies)-1])
	}
	if failures == *n {
		os.Exit(1)
	}
}
