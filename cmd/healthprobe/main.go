// Command healthprobe hits the bridge health endpoint and exits non-zero
// when the bridge is down or degraded. Meant for container healthchecks
// and CI smoke tests.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	url := flag.String("url", "http://127.0.0.1:3000/health", "health endpoint URL")
	timeout := flag.Duration("timeout", 3*time.Second, "request timeout")
	requireReady := flag.Bool("ready", false, "also require the gateway session to be ready")
	flag.Parse()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(*url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := fasthttp.DoTimeout(req, resp, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		fmt.Fprintf(os.Stderr, "probe failed: status %d\n", resp.StatusCode())
		os.Exit(1)
	}

	var body struct {
		Status   string `json:"status"`
		BotReady bool   `json:"bot_ready"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: bad body: %v\n", err)
		os.Exit(1)
	}
	if body.Status != "healthy" {
		fmt.Fprintf(os.Stderr, "probe failed: status=%q\n", body.Status)
		os.Exit(1)
	}
	if *requireReady && !body.BotReady {
		fmt.Fprintln(os.Stderr, "probe failed: gateway session not ready")
		os.Exit(1)
	}
	fmt.Println("ok")
}
