// Command openscore analyses detection streams of football plays and reports
// how open every receiver was.
//
//	openscore analyze play.jsonl --output result.json
//	openscore analyze --detector game.mp4
//	openscore serve
//	openscore report result.json --html chart.html
//	openscore config init
package main
