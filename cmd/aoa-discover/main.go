package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/rjboer/GoAOA/internal/mdns"
)

func main() {
	timeout := pflag.Duration("timeout", 5*time.Second, "Browse timeout")
	pflag.Parse()

	fmt.Println("===============================================================")
	fmt.Println(" AOA telemetry discovery")
	fmt.Println("===============================================================")
	fmt.Printf(" Service : %s.local\n", mdns.Service)
	fmt.Printf(" Timeout : %s\n", *timeout)
	fmt.Println("---------------------------------------------------------------")

	start := time.Now()
	hosts, err := mdns.Discover(*timeout)
	duration := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Discovery error: %v\n", err)
		os.Exit(1)
	}

	if len(hosts) == 0 {
		fmt.Printf("No AOA servers found (%s)\n", duration.Truncate(time.Millisecond))
		return
	}

	fmt.Printf("Discovered %d server(s) in %s\n",
		len(hosts), duration.Truncate(time.Millisecond))
	fmt.Println("===============================================================")

	for i, h := range hosts {
		fmt.Printf(" Server #%d\n", i+1)
		fmt.Println("---------------------------------------------------------------")
		fmt.Printf(" Instance : %s\n", h.Instance)
		fmt.Printf(" Hostname : %s\n", h.Hostname)
		fmt.Printf(" Port     : %d\n", h.Port)

		fmt.Println(" TXT Records:")
		if len(h.TXT) == 0 {
			fmt.Println("   <none>")
		}
		for _, txt := range h.TXT {
			fmt.Printf("   - %s\n", txt)
		}

		fmt.Println(" Web interface:")
		if len(h.Addresses) == 0 {
			fmt.Println("   <none>")
		}
		for _, ip := range h.Addresses {
			fmt.Printf("   - http://%s/\n", net.JoinHostPort(ip.String(), strconv.Itoa(h.Port)))
		}

		fmt.Println("===============================================================")
	}
}
