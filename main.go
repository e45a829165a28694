package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/anziyang2000/hq-code-sub000/chaincode"
)

func main() {
	ticketChaincode, err := contractapi.NewChaincode(&chaincode.SmartContract{})
	if err != nil {
		log.Panicf("Error creating ticket chaincode: %v", err)
	}

	if err := ticketChaincode.Start(); err != nil {
		log.Panicf("Error starting ticket chaincode: %v", err)
	}
}
