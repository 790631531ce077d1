package banner

import "fmt"

const banner = `
██████╗ ██╗███████╗ ██████╗ ██████╗     ██████╗ ██████╗ ██╗██████╗  ██████╗ ███████╗
██╔══██╗██║██╔════╝██╔════╝██╔═══██╗    ██╔══██╗██╔══██╗██║██╔══██╗██╔════╝ ██╔════╝
██║  ██║██║███████╗██║     ██║   ██║    ██████╔╝██████╔╝██║██║  ██║██║  ███╗█████╗
██║  ██║██║╚════██║██║     ██║   ██║    ██╔══██╗██╔══██╗██║██║  ██║██║   ██║██╔══╝
██████╔╝██║███████║╚██████╗╚██████╔╝    ██████╔╝██║  ██║██║██████╔╝╚██████╔╝███████╗
╚═════╝ ╚═╝╚══════╝ ╚═════╝ ╚═════╝     ╚═════╝ ╚═╝  ╚═╝╚═╝╚═════╝  ╚═════╝ ╚══════╝
`

// Print writes the startup banner with runtime info and a short endpoint
// reference.
func Print(addr, sources, version string, monitored int) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:             %s\n", addr)
	fmt.Printf("Monitored channels: %d\n", monitored)
	if version != "" {
		fmt.Printf("Version:            %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources:     %s\n", sources)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /send_message      - Send a message (JSON: channel_id, content)")
	fmt.Println("POST /reply_message     - Reply to a message (JSON: channel_id, message_id, content)")
	fmt.Println("GET  /get_sent_messages - List messages the bridge delivered")
	fmt.Println("POST /mcp               - JSON-RPC tool calls (search, fetch, get_mentions, ...)")
	fmt.Println("GET  /health            - Bridge health summary")
	fmt.Println("GET  /metrics           - Prometheus metrics")
}
