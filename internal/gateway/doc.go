// Package gateway abstracts the issue tracker and PR host behind a
// small capability set.
//
// The engines are written against the Gateway interface; GitHub is the
// production implementation and Mock backs the engine tests. Calls are
// single synchronous round trips with no built-in retries; retry policy
// belongs to the operator.
package gateway
