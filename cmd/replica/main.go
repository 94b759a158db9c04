// Command replica bootstraps one replicated-store process: it joins the
// Arbiter, learns its role, and serves either the primary or secondary
// RPC contract plus a chi admin surface. Bootstrap follows
// cmd/server/main.go and the root main.go of morphling: flag-parsed
// config, rpc.Register + rpc.HandleHTTP, net.Listen + http.Serve.
package main

import (
	"flag"
	"log"
	"net"
	"net/http"
	"net/rpc"

	"replkv/httpstatus"
	"replkv/kvlog"
	"replkv/kvtypes"
	"replkv/persistence"
	"replkv/replica"
	"replkv/rpcendpoint"
)

func main() {
	var (
		addr        = flag.String("addr", "localhost:23330", "this replica's own rpc listen address, reported to the Arbiter on Join")
		httpAddr    = flag.String("http", "localhost:23331", "admin http listen address")
		arbiterAddr = flag.String("arbiter", "localhost:23320", "arbiter rpc address")
		dataDir     = flag.String("data", "", "badger data directory; empty uses an in-memory engine")
		crashProb   = flag.Float64("fault-crash", 0, "probability the persistence collaborator crashes per attempt")
		dropProb    = flag.Float64("fault-drop", 0, "probability the persistence collaborator silently drops per attempt")
		seed        = flag.Int64("fault-seed", 1, "seed for the fault injector's randomness")
	)
	flag.Parse()

	arbiterClient, err := rpc.DialHTTP("tcp", *arbiterAddr)
	if err != nil {
		log.Fatalf("dial arbiter %s: %v", *arbiterAddr, err)
	}
	joinReply := &rpcendpoint.JoinReply{}
	if err := arbiterClient.Call("ArbiterEndpoint.Join", &kvtypes.Join{Addr: *addr}, joinReply); err != nil {
		log.Fatalf("join arbiter: %v", err)
	}
	self := joinReply.Self
	logger := kvlog.New(string(self), "unjoined")

	engine, err := newEngine(*dataDir)
	if err != nil {
		log.Fatalf("open persistence engine: %v", err)
	}
	var fault persistence.FaultPolicy = persistence.NoFault{}
	if *crashProb > 0 || *dropProb > 0 {
		fault = persistence.NewFlakyFault(*crashProb, *dropProb, *seed)
	}
	proxy := persistence.NewProxy(engine, fault, logger)

	if joinReply.Primary {
		logger.SetRole("primary")
		linkFactory := rpcendpoint.NewLinkFactory(*addr, logger)
		primary := replica.NewPrimary(self, proxy, linkFactory, logger)
		rpc.Register(&rpcendpoint.PrimaryEndpoint{Primary: primary})
		rpc.Register(&rpcendpoint.ReplicatorEndpoint{Primary: primary})
		serveHTTP(*httpAddr, httpstatus.NewPrimaryRouter(func() httpstatus.PrimaryStats {
			s := primary.Stats()
			return httpstatus.PrimaryStats{
				Identity:      string(self),
				KeyCount:      s.KeyCount,
				PendingKeys:   s.PendingKeys,
				ReplicatorIds: identitiesToStrings(s.ReplicatorIds),
			}
		}))
	} else {
		logger.SetRole("secondary")
		secondary := replica.NewSecondary(self, proxy, logger)
		rpc.Register(rpcendpoint.NewSecondaryEndpoint(secondary, logger))
		serveHTTP(*httpAddr, httpstatus.NewSecondaryRouter(func() httpstatus.SecondaryStats {
			s := secondary.Stats()
			return httpstatus.SecondaryStats{
				Identity:    string(self),
				KeyCount:    s.KeyCount,
				ExpectedSeq: int64(s.ExpectedSeq),
				Waiting:     s.Waiting,
			}
		}))
	}

	rpc.HandleHTTP()
	l, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("listen on %s: %v", *addr, err)
	}
	log.Printf("replica %s serving on %s (primary=%v)", self, *addr, joinReply.Primary)
	log.Fatal(http.Serve(l, nil))
}

func newEngine(dataDir string) (persistence.Engine, error) {
	if dataDir == "" {
		return persistence.NewMemEngine(), nil
	}
	return persistence.OpenBadgerEngine(dataDir)
}

func identitiesToStrings(ids []kvtypes.Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func serveHTTP(addr string, handler http.Handler) {
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			log.Printf("admin http server on %s stopped: %v", addr, err)
		}
	}()
}
