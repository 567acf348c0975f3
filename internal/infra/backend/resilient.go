package backend

import (
	"context"

	"github.com/docketry/docketd/internal/resilience"
)

// ResilientClient decorates a Client so every terminal data call is routed
// through the retry policy. Call sites use it exactly like the plain client;
// the auth client is deliberately not wrapped, it manages its own lifecycle
// through the session manager.
//
// New terminal methods added to QueryBuilder automatically inherit coverage
// because the decorator wraps the single exec choke point, not each method.
type ResilientClient struct {
	inner  *Client
	policy *resilience.Policy
}

var _ Querier = (*ResilientClient)(nil)
var _ Querier = (*Client)(nil)

// Resilient wraps client so its terminal operations retry per policy.
func Resilient(client *Client, policy *resilience.Policy) *ResilientClient {
	return &ResilientClient{inner: client, policy: policy}
}

// From starts a query whose terminal call runs under the retry policy.
func (rc *ResilientClient) From(table string) *QueryBuilder {
	return newQueryBuilder(table, rc.do)
}

// RPC invokes a server-side function under the retry policy.
func (rc *ResilientClient) RPC(ctx context.Context, fn string, args any, dest any) error {
	return rc.policy.Do(ctx, func(ctx context.Context) error {
		return rc.inner.RPC(ctx, fn, args, dest)
	})
}

func (rc *ResilientClient) do(ctx context.Context, r *request) ([]byte, error) {
	return resilience.DoValue(ctx, rc.policy, func(ctx context.Context) ([]byte, error) {
		return rc.inner.do(ctx, r)
	})
}
