package main

import (
	"github.com/MeKo-Tech/cardscan/cmd/cardscan/cmd"
	_ "github.com/MeKo-Tech/cardscan/internal/ocr/tesseract"
)

func main() {
	cmd.Execute()
}
