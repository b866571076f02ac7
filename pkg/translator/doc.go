// Package translator composes the rate limiter, the completion client and the
// variant selector into the single operation the bot calls.
package translator
