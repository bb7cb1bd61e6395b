package main

import (
	"encoding/json"
	"fmt"
	"io"
)

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
