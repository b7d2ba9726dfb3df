// Package api exposes the task manager over HTTP with gin.
package api
