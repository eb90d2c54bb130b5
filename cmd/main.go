/*
 * Copyright (C) 2025-2026, Artifortress Authors. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"fmt"

	"github.com/sremani/Artifortress-sub002/pkg/server"
)

func main() {
	s, err := server.NewServer()
	if err != nil {
		fmt.Println("failed to new server, err: ", err.Error())
		return
	}
	s.Start()
}
