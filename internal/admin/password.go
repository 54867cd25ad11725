package admin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/folio/internal/server/services"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

func promptPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// HashPassword asks for the password twice without echo and prints its
// bcrypt hash to out. Prompts go to prompts.
func HashPassword(prompts, out io.Writer) error {
	pw, err := promptPassword(prompts, "Enter password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword(prompts, "Confirm password: ")
	if err != nil {
		return err
	}
	if !bytes.Equal(pw, confirm) {
		return errPasswordMismatch
	}

	hash, err := services.HashPassword(string(pw))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
