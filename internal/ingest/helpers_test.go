package ingest_test

import "recbase/internal/rec"

func testsupportPlayer(number int, name string) rec.Player {
	return rec.Player{Number: number, Name: name, Team: number, Civilization: "Franks", Color: number}
}
