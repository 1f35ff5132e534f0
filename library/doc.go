// Package library is the bounded context of library branches: registering a branch and
// listing all branches.
package library
