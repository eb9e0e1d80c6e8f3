// Package validate runs the form checks the backend expects before a request is sent.
// Each function returns nil or an [*Error] listing the offending fields in form order.
package validate
