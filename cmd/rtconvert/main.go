// Команда rtconvert - конвертер изображений с подбором настроек под цель.
package main

import "github.com/artemshloyda/rtconvert/internal/cli"

func main() {
	cli.Execute()
}
