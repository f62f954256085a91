// Package banananation is the example mission model: a banana supply that
// is eaten, peeled and grown by planned activities.
//
// Cells:
//   - fruit: linear accumulator of bananas (GrowBanana integrates a rate)
//   - peel: count of peels produced
//   - flag: "A" while bites leave fruit, "B" once a bite overdraws it
//   - producer: current banana producer
//
// Activities: BiteBanana, PeelBanana, GrowBanana, ChangeProducer,
// ParentActivity (decomposes into ChildActivity instances through an
// anonymous helper), ChildActivity and WaitForFlag.
package banananation
