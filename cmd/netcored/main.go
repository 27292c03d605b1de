// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/galaxyemu/netcore/internal/config"
	"github.com/galaxyemu/netcore/internal/netsvc"
)

// version is populated via build flags when packaging official binaries.
var version = "SELFBUILD"

func main() {
	if version == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	app := cli.NewApp()
	app.Name = "netcored"
	app.Usage = "UDP session protocol receive core"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen,l",
			Value: ":44453",
			Usage: "UDP listen address",
		},
		cli.StringFlag{
			Name:   "key",
			Value:  "it's a secrect",
			Usage:  "pre-shared secret used to derive the cipher key material",
			EnvVar: "NETCORE_KEY",
		},
		cli.StringFlag{
			Name:  "crypt",
			Value: "xor",
			Usage: "xor, aes-128, aes-192, salsa20, none",
		},
		cli.BoolFlag{
			Name:  "serverservice",
			Usage: "use the server-server reliable size/window instead of server-client",
		},
		cli.IntFlag{
			Name:  "serverserverreliablesize",
			Value: 9000,
			Usage: "MaxPayload for server<->server peers",
		},
		cli.IntFlag{
			Name:  "serverclientreliablesize",
			Value: 496,
			Usage: "MaxPayload for server<->client peers",
		},
		cli.IntFlag{
			Name:  "serverpacketwindow",
			Value: 4096,
			Usage: "initial resend window size for server<->server peers",
		},
		cli.IntFlag{
			Name:  "clientpacketwindow",
			Value: 16,
			Usage: "initial resend window size for server<->client peers",
		},
		cli.IntFlag{
			Name:  "maxmessagesize",
			Value: 496,
			Usage: "datagrams larger than this are truncated before processing",
		},
		cli.IntFlag{
			Name:  "polltimeoutms",
			Value: 50,
			Usage: "socket read deadline per receive-loop iteration, in milliseconds",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "log file path; default goes to stderr",
		},
		cli.StringFlag{
			Name:  "snmplog",
			Value: "",
			Usage: "collect counters to file, aware of timeformat in golang, like: ./snmp-20060102.log",
		},
		cli.IntFlag{
			Name:  "snmpperiod",
			Value: 60,
			Usage: "counter collection period, in seconds",
		},
		cli.BoolFlag{
			Name:  "pprof",
			Usage: "start profiling server on :6060",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from JSON file, overrides flags",
		},
	}

	app.Action = func(c *cli.Context) error {
		cfg := config.Default()
		cfg.Listen = c.String("listen")
		cfg.Key = c.String("key")
		cfg.Crypt = c.String("crypt")
		cfg.ServerService = c.Bool("serverservice")
		cfg.ServerServerReliableSize = c.Int("serverserverreliablesize")
		cfg.ServerClientReliableSize = c.Int("serverclientreliablesize")
		cfg.ServerPacketWindow = c.Int("serverpacketwindow")
		cfg.ClientPacketWindow = c.Int("clientpacketwindow")
		cfg.MaxMessageSize = c.Int("maxmessagesize")
		cfg.PollTimeoutMillis = c.Int("polltimeoutms")
		cfg.Log = c.String("log")
		cfg.SnmpLog = c.String("snmplog")
		cfg.SnmpPeriod = c.Int("snmpperiod")
		cfg.Pprof = c.Bool("pprof")

		if path := c.String("c"); path != "" {
			if err := config.ParseJSONFile(&cfg, path); err != nil {
				return err
			}
		}

		if cfg.Log != "" {
			f, err := os.OpenFile(cfg.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			if err != nil {
				return err
			}
			defer f.Close()
			log.SetOutput(f)
		}

		log.Println("version:", version)
		log.Println("listening on:", cfg.Listen)
		log.Println("encryption:", cfg.Crypt)
		log.Println("serverservice:", cfg.ServerService, "maxpayload:", cfg.MaxPayload())
		log.Println("packet window:", cfg.PacketWindow())
		log.Println("maxmessagesize:", cfg.MaxMessageSize)
		log.Println("polltimeout(ms):", cfg.PollTimeoutMillis)
		log.Println("snmplog:", cfg.SnmpLog, "period:", cfg.SnmpPeriod)
		log.Println("pprof:", cfg.Pprof)

		if cfg.Pprof {
			go http.ListenAndServe(":6060", nil)
		}

		svc, err := netsvc.New(cfg, nil, log.Default())
		if err != nil {
			return err
		}

		go snmpLogger(svc, cfg.SnmpLog, cfg.SnmpPeriod)

		svc.Run()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("shutting down")
		svc.Shutdown()
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
