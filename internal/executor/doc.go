// Package executor bridges account runs to the external browser runner.
//
// The runner is a sidecar process exposing a blocking HTTP endpoint. One
// request drives one account through the full automation flow and reports
// whether it succeeded, the balance it read, and a screenshot path on
// failure.
package executor
