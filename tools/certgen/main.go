// Package main generates a self-signed server certificate and key for
// running GophAuth over HTTPS locally. Point TLS_CERT and TLS_KEY at the
// written files.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/atinyakov/GophAuth/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.String("hosts", "localhost,127.0.0.1", "comma separated DNS names and IPs")
	ttl := fs.Duration("ttl", 365*24*time.Hour, "certificate lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var names []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}

	certPEM, keyPEM, err := certgen.GenerateServerCertificate(names, *ttl)
	if err != nil {
		return fmt.Errorf("generate certificate: %w", err)
	}
	certPath, keyPath, err := certgen.WriteFiles(*dir, certPEM, keyPEM)
	if err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}

	_, err = fmt.Fprintf(out, "TLS_CERT=%s\nTLS_KEY=%s\n", certPath, keyPath)
	return err
}
