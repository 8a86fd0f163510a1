//go:build windows
// +build windows

// Command ipcecho is a small harness for exercising a named-pipe
// endpoint by hand: it either serves an echo endpoint or dials one and
// posts lines from stdin.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bitdewy/interprocess"
)

var log = logrus.StandardLogger()

func main() {
	root := &cobra.Command{
		Use:   "ipcecho",
		Short: "serve or dial a named-pipe echo endpoint",
	}
	root.AddCommand(newServeCmd(), newDialCmd())

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("ipcecho failed")
	}
}

func newServeCmd() *cobra.Command {
	var endpoint string
	var sddl string
	var register bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "accept connections and echo every message back",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []interprocess.ServerOption{interprocess.WithServerLogger(logrus.NewEntry(log))}
			if sddl != "" {
				opts = append(opts, interprocess.WithSecurityDescriptor(sddl))
			}
			server := interprocess.NewServer(endpoint, opts...)
			server.SetMessageCallback(func(conn *interprocess.Connection, msg []byte) {
				log.WithField("conn", conn.Name()).Infof("received %d bytes", len(msg))
				if err := conn.Post(msg); err != nil {
					log.WithError(err).Warn("echo failed")
				}
			})
			server.SetCloseCallback(func(conn *interprocess.Connection) {
				log.WithField("conn", conn.Name()).Info("connection closed")
			})
			server.SetExceptionCallback(func(err error) {
				log.WithError(err).Error("server error")
			})

			if err := server.Listen(); err != nil {
				return err
			}
			defer server.Stop()

			if register {
				if err := server.RegisterEndpoint("ipcecho"); err != nil {
					log.WithError(err).Warn("failed to register endpoint")
				} else {
					defer server.UnregisterEndpoint()
				}
			}

			log.WithField("endpoint", endpoint).Info("listening")
			waitForInterrupt()
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "ipcecho", "pipe endpoint name")
	cmd.Flags().StringVar(&sddl, "sddl", "", "optional SDDL security descriptor for the pipe")
	cmd.Flags().BoolVar(&register, "register", false, "publish the endpoint name to the registry")
	return cmd
}

func newDialCmd() *cobra.Command {
	var endpoint string
	var dialTimeout time.Duration
	var transact bool

	cmd := &cobra.Command{
		Use:   "dial",
		Short: "connect to an endpoint and post lines read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := interprocess.NewClient(endpoint, interprocess.WithDialTimeout(dialTimeout))
			client.SetMessageCallback(func(conn *interprocess.Connection, msg []byte) {
				fmt.Printf("< %s\n", msg)
			})
			client.SetExceptionCallback(func(err error) {
				log.WithError(err).Error("client error")
			})

			if err := client.Connect(); err != nil {
				return err
			}
			defer client.Close()

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := scanner.Bytes()
				if transact {
					reply, err := client.TransactMessage(line)
					if err != nil {
						log.WithError(err).Warn("transact failed")
						continue
					}
					fmt.Printf("< %s\n", reply)
					continue
				}
				if err := client.Post(line); err != nil {
					log.WithError(err).Warn("post failed")
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "ipcecho", "pipe endpoint name")
	cmd.Flags().DurationVar(&dialTimeout, "dial-timeout", 5*time.Second, "time to keep retrying a busy pipe")
	cmd.Flags().BoolVar(&transact, "transact", false, "use TransactMessage instead of Post")
	return cmd
}

func waitForInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}
