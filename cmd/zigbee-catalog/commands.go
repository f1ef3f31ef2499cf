package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"zigbee-catalog/internal/coordinator"
	"zigbee-catalog/internal/devices"
	"zigbee-catalog/internal/store"
	"zigbee-catalog/internal/web"
)

// sampleIEEE addresses the synthetic device that configure and decode run
// against.
const sampleIEEE = "0x00124b0000000001"

func (a *app) runList(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	vendor := fs.String("vendor", "", "only list definitions from this vendor")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var defs []*devices.Definition
	for _, d := range a.catalog.All() {
		if *vendor == "" || strings.EqualFold(d.Vendor, *vendor) {
			defs = append(defs, d)
		}
	}

	if *asJSON {
		views := make([]web.DefinitionView, 0, len(defs))
		for _, d := range defs {
			views = append(views, web.NewDefinitionView(d))
		}
		return writeIndented(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tVENDOR\tZIGBEE MODELS\tDESCRIPTION")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Model, d.Vendor, strings.Join(d.ZigbeeModels, ","), d.Description)
	}
	return tw.Flush()
}

func (a *app) runShow(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("show: expected one model, got %d args", fs.NArg())
	}
	d, err := a.catalog.Resolve(fs.Arg(0))
	if err != nil {
		return err
	}
	return writeIndented(w, web.NewDefinitionView(d))
}

// runConfigure runs a definition's configure steps against a dry-run stack
// and prints every request it would send.
func (a *app) runConfigure(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("configure", flag.ContinueOnError)
	eps := fs.String("endpoints", "1", "comma separated endpoint IDs of the synthetic device")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("configure: expected one model, got %d args", fs.NArg())
	}
	ids, err := parseEndpointIDs(*eps)
	if err != nil {
		return err
	}

	var inClusters []uint16
	for _, c := range a.registry.All() {
		inClusters = append(inClusters, c.ID)
	}
	endpoints := make([]store.Endpoint, 0, len(ids))
	for _, id := range ids {
		endpoints = append(endpoints, store.Endpoint{ID: id, ProfileID: 0x0104, InClusters: inClusters})
	}

	stack := newDryRunStack(a.registry, func(line string) { fmt.Fprintln(w, line) })
	return a.withSampleDevice(stack, fs.Arg(0), endpoints, func(coord *coordinator.Coordinator) error {
		return coord.Configure(context.Background(), sampleIEEE)
	})
}

// runDecode reads one attribute report per line and prints the state
// payload each one produces. Endpoint caches carry over between lines.
func (a *app) runDecode(args []string, stdin io.Reader, w io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	model := fs.String("model", "", "zigbee model or catalog model of the reporting device")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *model == "" {
		return fmt.Errorf("decode: -model is required")
	}

	in := stdin
	if fs.NArg() > 0 && fs.Arg(0) != "-" {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	return a.withSampleDevice(nil, *model, nil, func(coord *coordinator.Coordinator) error {
		enc := json.NewEncoder(w)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimSpace(sc.Text())
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			var evt coordinator.AttributeReportEvent
			if err := json.Unmarshal([]byte(text), &evt); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			evt.IEEE = sampleIEEE
			payload, err := coord.HandleAttributeReport(evt)
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			if payload == nil {
				payload = map[string]any{}
			}
			if err := enc.Encode(payload); err != nil {
				return err
			}
		}
		return sc.Err()
	})
}

// withSampleDevice interviews a synthetic device of the given model in a
// throwaway store and hands the coordinator to fn.
func (a *app) withSampleDevice(stack coordinator.Stack, model string, endpoints []store.Endpoint, fn func(*coordinator.Coordinator) error) error {
	d, err := a.catalog.Resolve(model)
	if err != nil {
		return err
	}
	if len(d.ZigbeeModels) == 0 {
		return fmt.Errorf("%s has no zigbee model identifiers", d.Model)
	}

	dir, err := os.MkdirTemp("", "zigbee-catalog-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	db, err := store.NewBoltStore(filepath.Join(dir, "sample.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	events := coordinator.NewEventBus(a.logger)
	coord := coordinator.New(stack, db, a.registry, a.catalog, events, a.logger)
	if _, err := coord.Interview(sampleIEEE, d.Vendor, d.ZigbeeModels[0], endpoints); err != nil {
		return err
	}
	return fn(coord)
}

func parseEndpointIDs(s string) ([]uint8, error) {
	var ids []uint8
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 0, 8)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid endpoint %q", part)
		}
		ids = append(ids, uint8(n))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no endpoints given")
	}
	return ids, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
