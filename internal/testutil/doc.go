// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when scripting backend streams and observing operator
// output. They are not intended for production usage.
package testutil
