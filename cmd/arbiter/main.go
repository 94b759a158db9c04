// Command arbiter runs the membership authority from spec.md §6 as a
// standalone net/rpc service, the same bootstrap shape as cmd/replica:
// rpc.Register + rpc.HandleHTTP over a plain net.Listener.
package main

import (
	"flag"
	"log"
	"net"
	"net/http"
	"net/rpc"

	"replkv/arbiter"
	"replkv/kvlog"
	"replkv/rpcendpoint"
)

func main() {
	addr := flag.String("addr", "localhost:23320", "arbiter rpc listen address")
	flag.Parse()

	logger := kvlog.New(*addr, "arbiter")
	arb := arbiter.New()

	rpc.Register(&rpcendpoint.ArbiterEndpoint{Arb: arb, Log: logger})
	rpc.HandleHTTP()

	l, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("listen on %s: %v", *addr, err)
	}
	log.Printf("arbiter serving on %s", *addr)
	log.Fatal(http.Serve(l, nil))
}
