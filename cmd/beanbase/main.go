// Command beanbase is the BeanBase command-line interface.
package main

import "github.com/mesh-intelligence/beanbase/internal/cli"

func main() {
	cli.Execute()
}
