// Package secrets resolves operator-supplied secret material and carries generated
// credentials in a holder that redacts itself everywhere except an explicit reveal.
package secrets
