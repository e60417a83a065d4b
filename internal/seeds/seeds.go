// Package seeds discovers network peers through DNS seeds and probes them.
package seeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/nodech/hsd-tools/internal/cache"
	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/logging"
	"github.com/nodech/hsd-tools/internal/semaphore"
	"github.com/nodech/hsd-tools/internal/util"
)

const (
	// CacheName is the cache bucket for resolved seed hosts.
	CacheName = "seeds"

	DNSTask   = "dns"
	ProbeTask = "probe"

	DefaultPort    = 12038
	DefaultTimeout = 3 * time.Second
	DefaultTTL     = 30 * time.Minute
)

// Resolver resolves seed host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Dialer opens probe connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Operation resolves the seed hosts and reports which peers accept a TCP
// connection on Port.
type Operation struct {
	Hosts       []string
	Port        int
	Timeout     time.Duration
	Concurrency int
	TTL         time.Duration
	Cache       cache.Cache
	Resolver    Resolver
	Dialer      Dialer
	Logger      *logging.Logger
}

// Name implements orchestrator.Operation.
func (o *Operation) Name() string { return "seeds" }

func (o *Operation) defaults() {
	if o.Port <= 0 {
		o.Port = DefaultPort
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.Cache == nil {
		o.Cache = cache.Null{}
	}
	if o.Resolver == nil {
		o.Resolver = net.DefaultResolver
	}
	if o.Dialer == nil {
		o.Dialer = &net.Dialer{}
	}
}

// Run implements orchestrator.Operation.
func (o *Operation) Run(ctx context.Context, r *event.Reporter) error {
	o.defaults()
	logger := o.Logger.WithOperation(o.Name())

	addrs := o.resolveAll(ctx, r, logger)
	if err := ctx.Err(); err != nil {
		return err
	}

	r.Task(ProbeTask)
	if len(addrs) == 0 {
		r.TaskStatus(ProbeTask, event.Skipped, "no addresses")
		return nil
	}
	r.TaskStatus(ProbeTask, event.Running, "port "+strconv.Itoa(o.Port))

	reachable := o.probeAll(ctx, r, addrs)
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, addr := range reachable {
		r.Out(net.JoinHostPort(addr, strconv.Itoa(o.Port)))
	}
	r.TaskStatus(ProbeTask, event.Done, fmt.Sprintf("%d of %d reachable", len(reachable), len(addrs)))
	return nil
}

// resolveAll returns the sorted, deduplicated addresses of every host.
func (o *Operation) resolveAll(ctx context.Context, r *event.Reporter, logger *logging.Logger) []string {
	r.Task(DNSTask, "resolving "+util.Plural(len(o.Hosts), "seed"))
	r.TaskStatus(DNSTask, event.Running)
	for _, host := range o.Hosts {
		r.Step(DNSTask, host)
	}

	var mu sync.Mutex
	var wg conc.WaitGroup
	seen := make(map[string]bool)
	for _, host := range o.Hosts {
		wg.Go(func() {
			addrs, err := o.resolve(ctx, r, host)
			if err != nil {
				logger.WithTask(DNSTask).Debug("seed lookup failed", "host", host, "error", err.Error())
				return
			}
			mu.Lock()
			for _, a := range addrs {
				seen[a] = true
			}
			mu.Unlock()
		})
	}
	wg.Wait()

	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	r.TaskStatus(DNSTask, event.Done, util.Plural(len(out), "address"))
	return out
}

func (o *Operation) resolve(ctx context.Context, r *event.Reporter, host string) ([]string, error) {
	r.StepStatus(DNSTask, host, event.Running)

	file := host + ".json"
	if data, ok := o.Cache.Get(CacheName, file); ok {
		var addrs []string
		if err := json.Unmarshal(data, &addrs); err == nil {
			r.StepStatus(DNSTask, host, event.Done, util.Plural(len(addrs), "address")+" (cached)")
			return addrs, nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	addrs, err := o.Resolver.LookupHost(lookupCtx, host)
	if err != nil {
		r.StepStatus(DNSTask, host, event.Failed, "lookup failed")
		r.Error(err, "host", host)
		return nil, err
	}

	if data, err := json.Marshal(addrs); err == nil {
		if _, err := o.Cache.Put(CacheName, file, data, o.TTL); err != nil {
			r.Error(err, "host", host)
		}
	}
	r.StepStatus(DNSTask, host, event.Done, util.Plural(len(addrs), "address"))
	return addrs, nil
}

// probeAll dials every address with at most Concurrency dials in flight and
// returns the reachable ones in input order.
func (o *Operation) probeAll(ctx context.Context, r *event.Reporter, addrs []string) []string {
	for _, a := range addrs {
		r.Step(ProbeTask, a)
	}

	sem := semaphore.New(o.Concurrency)
	ok := make([]bool, len(addrs))
	var wg conc.WaitGroup
	for i, addr := range addrs {
		wg.Go(func() {
			err := semaphore.Run(ctx, sem, func(ctx context.Context) error {
				var err error
				ok[i], err = o.probe(ctx, r, addr)
				return err
			})
			if err != nil && ctx.Err() != nil {
				r.StepStatus(ProbeTask, addr, event.Skipped, "interrupted")
			}
		})
	}
	wg.Wait()

	var out []string
	for i, addr := range addrs {
		if ok[i] {
			out = append(out, addr)
		}
	}
	return out
}

func (o *Operation) probe(ctx context.Context, r *event.Reporter, addr string) (bool, error) {
	r.StepStatus(ProbeTask, addr, event.Running)

	dialCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	start := time.Now()
	conn, err := o.Dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(addr, strconv.Itoa(o.Port)))
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		r.StepStatus(ProbeTask, addr, event.Failed, "unreachable")
		return false, nil
	}
	_ = conn.Close()

	r.StepStatus(ProbeTask, addr, event.Done, "reachable in "+time.Since(start).Round(time.Millisecond).String())
	return true, nil
}
