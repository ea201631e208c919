// Package workers holds request handlers written in Go.
//
// A Worker writes directly to a *response.Context. Workers are built fresh
// for every dispatch from a Factory kept in a Registry, and the server
// reaches them either through a configured route (an exact URL path) or
// through the extension prefix, /ext/<Name>.
//
// The stock workers:
//
//	HelloWorker    greeting with the length of ?name
//	EchoParams     HTML table of the request parameters
//	CircleWorker   PNG image of a circle
//	SumWorker      a+b rendered through /private/pages/calc.smscr
//	BgColorWorker  stores ?bgcolor=RRGGBB in the session
//	Home           renders /private/pages/home.smscr with the session colour
//	ParamsJSON     all parameter maps as JSON, optionally filtered by ?select
//	Metrics        Prometheus text exposition of the server metrics
package workers
