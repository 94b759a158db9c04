// Command client is a flag-driven CLI for exercising one replicated
// store from the outside, in the spirit of morphling's cmd/client but
// cut down to this spec's three client operations instead of its
// load-generation harness.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"replkv/client"
	"replkv/kvtypes"
)

func main() {
	var (
		primaryAddr   = flag.String("primary", "localhost:23330", "primary rpc address")
		secondaryAddr = flag.String("secondary", "", "read directly from this secondary instead of the primary")
		op            = flag.String("op", "get", "operation: insert, remove, get")
		key           = flag.String("key", "", "key")
		value         = flag.String("value", "", "value, for insert")
	)
	flag.Parse()

	if *key == "" {
		fmt.Fprintln(os.Stderr, "-key is required")
		os.Exit(2)
	}
	id := kvtypes.OperationId(rand.Int63())

	if *secondaryAddr != "" {
		v, err := client.GetFromSecondary(*secondaryAddr, *key, id)
		if err != nil {
			log.Fatalf("get from secondary: %v", err)
		}
		printValue(v)
		return
	}

	c, err := client.Dial(*primaryAddr)
	if err != nil {
		log.Fatalf("dial primary: %v", err)
	}
	defer c.Close()

	switch *op {
	case "insert":
		ok, err := c.Insert(*key, *value, id)
		if err != nil {
			log.Fatalf("insert: %v", err)
		}
		fmt.Println("ok:", ok)
	case "remove":
		ok, err := c.Remove(*key, id)
		if err != nil {
			log.Fatalf("remove: %v", err)
		}
		fmt.Println("ok:", ok)
	case "get":
		v, err := c.Get(*key, id)
		if err != nil {
			log.Fatalf("get: %v", err)
		}
		printValue(v)
	default:
		fmt.Fprintf(os.Stderr, "unknown -op %q\n", *op)
		os.Exit(2)
	}
}

func printValue(v kvtypes.ValueOption) {
	if v == nil {
		fmt.Println("<no value>")
		return
	}
	fmt.Println(*v)
}
